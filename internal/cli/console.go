package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// PrintSystemMessage prints a standardized system message to stdout.
func PrintSystemMessage(format string, args ...any) {
	fmt.Fprintf(stdout, ">>> %s\n", fmt.Sprintf(format, args...))
}

// IgnoreInterrupt maps a canceled context (Ctrl+C) to a clean exit.
func IgnoreInterrupt(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
