package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/gastownhall/presenter-remote/internal/config"
	"github.com/gastownhall/presenter-remote/internal/presenter"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("presenter-remote failed")
		return 1
	}
	return 0
}

type serveFlags struct {
	configPath string
	listen     string
	content    string
	authToken  string
}

func newRootCmd() *cobra.Command {
	var flags serveFlags
	root := &cobra.Command{
		Use:           "presenter-remote",
		Short:         "Serve a presentation's remote-control channel over WebSocket",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: user config dir/presenter-remote/config.yaml)")
	root.Flags().StringVar(&flags.listen, "listen", "", "HTTP listen address")
	root.Flags().StringVar(&flags.content, "content", "", "content document (TOML) to present")
	root.Flags().StringVar(&flags.authToken, "auth-token", "", "optional WebSocket auth token (Bearer token or ?token=...)")

	root.AddCommand(newConfigCmd())
	return root
}

// loadConfig reads the config file and applies flags the user set.
func loadConfig(cmd *cobra.Command, flags serveFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen = flags.listen
	}
	if cmd.Flags().Changed("content") {
		cfg.ContentFile = flags.content
	}
	if cmd.Flags().Changed("auth-token") {
		cfg.AuthToken = flags.authToken
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := pslog.Ctx(ctx)

	p, err := presenter.New(cfg)
	if err != nil {
		return err
	}
	if err := p.Start(ctx); err != nil {
		return err
	}
	logger.Info("presenter started", "addr", p.Addr(), "content", cfg.ContentFile, "meter", cfg.Meter.Source)

	<-ctx.Done()
	p.Stop()
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(config.Default())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
