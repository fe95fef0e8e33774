// apiserver serves the NLP inference HTTP API and, optionally, the gRPC health
// service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/nlp-inference-service/internal/config"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type serveOptions struct {
	configPath string
	warm       bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "apiserver",
		Short:         "NLP inference API server",
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file; environment variables override it")
	cmd.Flags().BoolVar(&opts.warm, "warm", false, "load both models in the background at startup")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", logging.Err(err))
		return err
	}

	if opts.warm {
		go func() {
			if err := app.runner.Warm(ctx); err != nil {
				logger.Warn("model warm-up failed; models load on first use", logging.Err(err))
			}
		}()
	}
	return app.run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

//Personal.AI order the ending
