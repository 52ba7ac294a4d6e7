package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/botflow/internal/cli"
	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v       = viper.New()
	cfg     *config.Config
	logger  *slog.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "botflow",
	Short: "botflow runs conversational bots defined as blocks and flows",
	Long: `botflow executes chatbot conversations authored as linear blocks of cards
or as node graphs. Bots are read from YAML files in the bots directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(v, cfgFile); err != nil {
			return err
		}
		logger, err = cli.NewLogger(cfg)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./botflow.yaml)")
	flags.String("bots", "bots", "directory containing bot definitions")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("store", config.DriverFile, "session store: memory, file or redis")

	cobra.CheckErr(config.BindFlags(v, flags, map[string]string{
		"bots":      "bots_dir",
		"log-level": "log_level",
		"store":     "store.driver",
	}))
}

// buildApp wires the configured engine. gateway may be nil.
func buildApp(ctx context.Context, gateway ports.MessagingGateway) (*cli.App, error) {
	return cli.Build(ctx, cfg, logger, gateway)
}
