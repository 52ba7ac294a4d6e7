/*
Package runner drives a bot from a console.

Chat reads one line per turn from stdin (or any reader) and hands it to a TurnFunc,
usually a closure over Engine.ExecuteFlow whose gateway prints to the same console.
SanitizeInput is the input policy applied to every inbound message before routing.

	chat := runner.NewChat(os.Stdin, os.Stdout,
		runner.WithCommand("reset", resetSession),
	)
	err := chat.Run(ctx, func(ctx context.Context, text string) domain.Result {
		return engine.ExecuteFlow(ctx, bot, "console", text, "console")
	})
*/
package runner
