package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wireirc/internal/app"
	"github.com/vovakirdan/wireirc/internal/config"
	applog "github.com/vovakirdan/wireirc/internal/log"
)

type flags struct {
	configPath string
	port       string
	serverName string
	httpAddr   string
	verbose    int
	quiet      bool
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:          "wireirc",
		Short:        "IRC connection core: accepts clients and completes NICK/USER registration",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fs := rootCmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "path to config file (created with defaults if missing)")
	fs.StringVarP(&f.port, "port", "p", "", "port or service name to listen on (default 6667)")
	fs.StringVarP(&f.serverName, "server-name", "s", "", "server name used as the source of replies")
	fs.StringVar(&f.httpAddr, "http", "", "address for the health/stats endpoints and WebSocket gateway")
	fs.CountVarP(&f.verbose, "verbose", "v", "more logging (-v debug, -vv trace)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f flags) error {
	bootLog := applog.New("info")

	cfg, path, err := config.Load(bootLog, f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg.UpdateFrom(config.Config{
		Port:       f.port,
		ServerName: f.serverName,
		HTTPAddr:   f.httpAddr,
	})
	switch {
	case f.quiet:
		cfg.LogLevel = applog.LevelForVerbosity(-1)
	case cmd.Flags().Changed("verbose"):
		cfg.LogLevel = applog.LevelForVerbosity(f.verbose)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := applog.New(cfg.LogLevel)
	logger.Info().
		Str("config", path).
		Str("server_name", cfg.ServerName).
		Str("listen", cfg.ListenAddr()).
		Msg("starting wireirc")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
