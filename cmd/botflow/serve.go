package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/botflow"
	botflowhttp "github.com/aretw0/botflow/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the bots over a JSON API. Each inbound message is queued on the
actor of its session. Without a webhook URL the replies are returned in the response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := []botflowhttp.Option{
			botflowhttp.WithLogger(logger),
			botflowhttp.WithGatherer(app.Registry),
			botflowhttp.WithVersion(botflow.Version),
		}
		if app.Recorder != nil {
			opts = append(opts, botflowhttp.WithTranscripts(app.Recorder))
		}
		srv := botflowhttp.New(app.Repo, app.Turns, app.Sessions, opts...)

		logger.Info("serving bots", "dir", cfg.BotsDir, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	cobra.CheckErr(v.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr")))
}
