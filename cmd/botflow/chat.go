package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/botflow/internal/cli"
	"github.com/aretw0/botflow/pkg/adapters/console"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a bot in the terminal",
	Long: `Starts an interactive conversation with a bot. Type /reset to clear the
session and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		botID, _ := cmd.Flags().GetString("bot")
		sender, _ := cmd.Flags().GetString("sender")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		gw := console.New(out, console.WithRenderer(console.NewMarkdownRenderer()))
		app, err := buildApp(ctx, gw)
		if err != nil {
			return err
		}
		defer app.Close()

		bot, err := pickBot(ctx, app, botID)
		if err != nil {
			return err
		}

		console.PrintBanner(out)
		cli.PrintSystemMessage("chatting with %s as %s", bot.ID, sender)

		key := domain.SessionKey(bot.ID, sender)
		chat := runner.NewChat(cmd.InOrStdin(), out,
			runner.WithLogger(logger),
			runner.WithCommand("reset", func(ctx context.Context) error {
				if err := app.Sessions.Delete(ctx, key); err != nil {
					return err
				}
				cli.PrintSystemMessage("session reset")
				return nil
			}),
		)

		err = chat.Run(ctx, func(ctx context.Context, text string) domain.Result {
			return app.Engine.ExecuteFlow(ctx, *bot, sender, text, "console")
		})
		return cli.IgnoreInterrupt(err)
	},
}

// pickBot returns the requested bot, or the only one when none was named.
func pickBot(ctx context.Context, app *cli.App, botID string) (*domain.Bot, error) {
	if botID != "" {
		return app.Repo.GetBot(ctx, botID)
	}
	bots, err := app.Repo.ListBots(ctx)
	if err != nil {
		return nil, err
	}
	switch len(bots) {
	case 0:
		return nil, errors.New("no bots found in " + cfg.BotsDir)
	case 1:
		return &bots[0], nil
	default:
		return nil, errors.New("several bots found, pick one with --bot")
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("bot", "", "bot id (optional when only one bot exists)")
	chatCmd.Flags().String("sender", "local", "sender id used for the session")
}
