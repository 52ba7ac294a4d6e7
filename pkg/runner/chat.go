package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
	"golang.org/x/term"
)

// TurnFunc delivers one line typed by the user to a bot.
type TurnFunc func(ctx context.Context, text string) domain.Result

// CommandFunc handles a slash command such as /reset.
type CommandFunc func(ctx context.Context) error

// Chat reads lines from a terminal or a pipe and feeds them to a bot, one turn per line.
type Chat struct {
	reader      *bufio.Reader
	writer      io.Writer
	interactive bool
	prompt      string
	commands    map[string]CommandFunc
	logger      *slog.Logger
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithPrompt replaces the "> " prompt shown in interactive mode.
func WithPrompt(p string) ChatOption {
	return func(c *Chat) {
		c.prompt = p
	}
}

// WithCommand registers a slash command. name excludes the slash.
func WithCommand(name string, fn CommandFunc) ChatOption {
	return func(c *Chat) {
		c.commands[strings.ToLower(name)] = fn
	}
}

// WithInteractive overrides terminal detection.
func WithInteractive(interactive bool) ChatOption {
	return func(c *Chat) {
		c.interactive = interactive
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ChatOption {
	return func(c *Chat) {
		c.logger = logger
	}
}

// NewChat creates a chat loop over r and w. Prompts are printed only when r is a terminal,
// so piped transcripts stay clean.
func NewChat(r io.Reader, w io.Writer, opts ...ChatOption) *Chat {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	c := &Chat{
		reader:      bufio.NewReader(r),
		writer:      w,
		interactive: isTerminal(r),
		prompt:      "> ",
		commands:    make(map[string]CommandFunc),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type inputResult struct {
	text string
	err  error
}

// pump reads lines in the background so Run can stop on ctx without waiting for Enter.
func (c *Chat) pump(ctx context.Context) <-chan inputResult {
	ch := make(chan inputResult)
	go func() {
		defer close(ch)
		for {
			text, err := c.reader.ReadString('\n')
			if text != "" {
				select {
				case ch <- inputResult{text: text}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					select {
					case ch <- inputResult{err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()
	return ch
}

// Run loops until EOF, /quit (or /exit) or ctx cancellation. Blank lines are skipped.
// A failed turn is not fatal: the bot already apologized to the user.
func (c *Chat) Run(ctx context.Context, turn TurnFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := c.pump(ctx)

	for {
		if c.interactive {
			fmt.Fprint(c.writer, c.prompt)
		}

		var in inputResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-lines:
			if !ok {
				return nil
			}
			in = r
		}
		if in.err != nil {
			return fmt.Errorf("read input: %w", in.err)
		}

		text := strings.TrimSpace(in.text)
		if text == "" {
			continue
		}

		if name, ok := strings.CutPrefix(text, "/"); ok {
			name = strings.ToLower(name)
			if name == "quit" || name == "exit" {
				return nil
			}
			if fn, ok := c.commands[name]; ok {
				if err := fn(ctx); err != nil {
					fmt.Fprintf(c.writer, "/%s failed: %v\n", name, err)
				}
				continue
			}
		}

		res := turn(ctx, text)
		if !res.Success {
			c.logger.Debug("turn failed", "err", res.Error)
		}
	}
}
