package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"searchforge/internal/adapter/tool"
	"searchforge/internal/infra/config"
	"searchforge/internal/infra/logger"
	"searchforge/internal/infra/tracer"
)

const defaultConfigPath = "searchforge.yaml"

// app carries the state shared by subcommands.
type app struct {
	configPath string
	envFile    string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// stdoutReserved is set by commands whose stdout carries a protocol.
	stdoutReserved bool

	cfg     *config.Config
	logger  *slog.Logger
	metrics *tool.SearchMetrics
	cleanup []func(context.Context) error
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "searchforge",
		Short: "Multi-query web search adapter",
		Long: `searchforge issues one search request per query, drops results that lack
a title, url, content or query, and returns the survivors in query order,
capped at max_results.

Configuration:
  Config file: ./searchforge.yaml (override with --config)
  Environment: SEARCHFORGE_* variables and TAVILY_API_KEY override the file.
  A .env file in the working directory is loaded first if present.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadEnvFile()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before config (ignored if missing)")

	root.AddCommand(
		newSearchCmd(a),
		newSchemaCmd(a),
		newExecCmd(a),
		newMCPCmd(a),
		newServeCmd(a),
		newEncryptCmd(a),
		newDoctorCmd(a),
	)
	return root
}

func (a *app) loadEnvFile() error {
	if a.envFile == "" {
		return nil
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}
	return nil
}

// withSetup wraps a RunE so that config, logging and tracing are ready
// before fn runs and torn down after, even when fn fails.
func (a *app) withSetup(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(cmd.Context()); err != nil {
			return errors.Join(err, a.close(context.WithoutCancel(cmd.Context())))
		}
		defer func() {
			err = errors.Join(err, a.close(context.WithoutCancel(cmd.Context())))
		}()
		return fn(cmd, args)
	}
}

// setup loads and validates config, then builds the logger and tracer.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	return a.initObservability(ctx)
}

func (a *app) initObservability(ctx context.Context) error {
	if a.stdoutReserved && a.cfg.Logger.Output == "stdout" {
		a.cfg.Logger.Output = "stderr"
	}
	log, closeLog, err := logger.New(a.cfg.Logger)
	if err != nil {
		return err
	}
	a.logger = log
	a.cleanup = append(a.cleanup, func(context.Context) error { return closeLog() })

	shutdown, err := tracer.Setup(ctx, a.cfg.Tracer)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	a.cleanup = append(a.cleanup, shutdown)
	return nil
}

// newRegistry builds the adapter and registers the search tool.
func (a *app) newRegistry() (*tool.Registry, *tool.SearchAdapter, error) {
	adapter, err := tool.NewSearchAdapterFromConfig(a.cfg.Search, a.metrics, logger.Component(a.logger, "search"))
	if err != nil {
		return nil, nil, err
	}
	st, err := tool.NewSearchTool(adapter, logger.Component(a.logger, "tool"))
	if err != nil {
		return nil, nil, err
	}
	reg := tool.NewRegistry(a.logger)
	if err := reg.Register(st); err != nil {
		return nil, nil, err
	}
	return reg, adapter, nil
}

// newMetricsRegistry creates a registry holding the search collectors.
func (a *app) newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	a.metrics = tool.NewSearchMetrics()
	a.metrics.MustRegister(reg)
	return reg
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
