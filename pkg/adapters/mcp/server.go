package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/dispatch"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// BotsURI is the resource listing the loaded bots.
const BotsURI = "botflow://bots"

// Dispatcher runs a turn and waits for it.
type Dispatcher interface {
	Submit(ctx context.Context, req dispatch.Request) (domain.Result, error)
}

// Transcripts hands out what the gateway recorded for a recipient since the last call.
type Transcripts interface {
	Drain(recipientID string) []domain.Outbound
}

// TurnResponse is the structured result of send_message.
type TurnResponse struct {
	Success bool            `json:"success" jsonschema_description:"Whether the turn completed without error"`
	Error   string          `json:"error,omitempty" jsonschema_description:"Failure reason when success is false"`
	Replies []string        `json:"replies" jsonschema_description:"Plain-text rendition of every message the bot sent"`
	Session *domain.Session `json:"session,omitempty" jsonschema_description:"The session after the turn"`
}

// Server exposes a bot engine as an MCP server so agents can hold test conversations.
type Server struct {
	bots        ports.BotDirectory
	turns       Dispatcher
	sessions    *session.Manager
	transcripts Transcripts
	logger      *slog.Logger
	mcpServer   *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(bots ports.BotDirectory, turns Dispatcher, sessions *session.Manager, transcripts Transcripts, opts ...Option) *Server {
	s := &Server{
		bots:        bots,
		turns:       turns,
		sessions:    sessions,
		transcripts: transcripts,
		logger:      logging.NewNop(),
		mcpServer:   server.NewMCPServer("botflow-mcp", botflow.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over server-sent events on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to a bot as the given sender and return the bot's replies."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("ID of the bot")),
		mcp.WithString("sender_id", mcp.Required(), mcp.Description("External ID of the sender")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("inspect_session",
		mcp.WithDescription("Show where a conversation is paused and the variables it collected."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("ID of the bot")),
		mcp.WithString("sender_id", mcp.Required(), mcp.Description("External ID of the sender")),
	), s.handleInspectSession)

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Forget a conversation so the next message starts from scratch."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("ID of the bot")),
		mcp.WithString("sender_id", mcp.Required(), mcp.Description("External ID of the sender")),
	), s.handleResetSession)
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	botID, _ := args["bot_id"].(string)
	senderID, _ := args["sender_id"].(string)
	text, _ := args["text"].(string)
	if senderID == "" {
		return TurnResponse{}, errors.New("sender_id is required")
	}

	bot, err := s.bots.GetBot(ctx, botID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("lookup bot %q: %w", botID, err)
	}

	res, err := s.turns.Submit(ctx, dispatch.Request{Bot: *bot, SenderID: senderID, Message: text, Platform: "mcp"})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("send message: %w", err)
	}

	resp := TurnResponse{Success: res.Success, Error: res.Error, Replies: []string{}}
	if s.transcripts != nil {
		for _, msg := range s.transcripts.Drain(senderID) {
			if _, typing := msg.(domain.TypingIndicator); typing {
				continue
			}
			resp.Replies = append(resp.Replies, msg.Summary())
		}
	}
	if sess, err := s.sessions.Load(ctx, domain.SessionKey(bot.ID, senderID)); err == nil {
		resp.Session = sess
	}
	return resp, nil
}

func (s *Server) handleInspectSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := domain.SessionKey(request.GetString("bot_id", ""), request.GetString("sender_id", ""))
	sess, err := s.sessions.Load(ctx, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no session %s", key)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load session failed: %v", err)), nil
	}
	jsonBytes, _ := json.MarshalIndent(sess, "", "  ")
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := domain.SessionKey(request.GetString("bot_id", ""), request.GetString("sender_id", ""))
	if err := s.sessions.Delete(ctx, key); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	s.logger.Info("session reset", "session_id", key)
	return mcp.NewToolResultText("session " + key + " reset"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(BotsURI, "Loaded bots",
		mcp.WithMIMEType("application/json"),
	), s.readBots)
}

func (s *Server) readBots(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	bots, err := s.bots.ListBots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	jsonBytes, _ := json.Marshal(bots)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      BotsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
