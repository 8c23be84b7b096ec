// Package main is the docqa CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/session"
	"github.com/hyperjump/docqa/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docqa/config.yaml"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
	document   string
	model      string
	format     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about a local document with a local language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", defaultConfigPath, "config file path")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.document, "document", "", "document to answer from (empty answers without context)")
	pf.StringVar(&flags.model, "model", "", "GGUF model file")
	pf.StringVar(&flags.format, "format", "text", "output format: text or json")

	root.AddCommand(
		newAskCmd(flags),
		newChatCmd(flags),
		newServeCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "docqa version %s\n", version)
			},
		},
	)
	return root
}

// loadConfig loads config from path. When path is the default and does not
// exist, config.yaml in the current directory is tried, then built-in
// defaults. A .env file in the current directory is loaded first.
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}
	if path == defaultConfigPath {
		if _, err := os.Stat(path); err != nil {
			path = ""
			if cwd, cwdErr := os.Getwd(); cwdErr == nil {
				fallback := filepath.Join(cwd, "config.yaml")
				if _, statErr := os.Stat(fallback); statErr == nil {
					path = fallback
				}
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// app bundles the loaded configuration with the wired session.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	session *session.Orchestrator
	request session.InitRequest
}

func (a *app) Close() {
	if err := a.session.Close(); err != nil {
		a.logger.Warn("closing session", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newApp loads configuration, applies command-line overrides and wires the
// embedder, model runtime and session.
func newApp(cmd *cobra.Command, flags *globalFlags, opts ...session.Option) (*app, error) {
	cfg, cfgPath, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("document") {
		cfg.Document = flags.document
	}
	if flags.model != "" {
		cfg.Model.Path = flags.model
	}
	debug := cfg.Debug || flags.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", cfgPath), zap.Bool("debug", debug))

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	backend := llm.NewLlamaServer(&cfg.Model, utils.Named(logger, "llama-server"))
	runtime := llm.NewRuntime(backend,
		llm.WithLogger(utils.Named(logger, "llm")),
		llm.WithLockDir(cfg.Model.LockDir),
		llm.WithQueuePolicy(cfg.Model.QueuePolicy),
	)
	opts = append([]session.Option{
		session.WithLogger(utils.Named(logger, "session")),
		session.WithChunking(cfg.Chunking),
		session.WithTopK(cfg.Retrieval.TopK),
		session.WithGeneration(cfg.Model.TemperatureOrDefault(), cfg.Model.MaxTokens),
	}, opts...)

	return &app{
		cfg:     cfg,
		logger:  logger,
		session: session.New(embedder, runtime, opts...),
		request: session.InitRequest{
			DocumentPath: cfg.Document,
			ModelPath:    cfg.Model.Path,
			Params:       llm.ParamsFromConfig(&cfg.Model),
		},
	}, nil
}

// initialize runs Initialize and reports errors with their hints.
func (a *app) initialize(cmd *cobra.Command) error {
	if a.request.ModelPath == "" {
		return fmt.Errorf("no model configured: pass --model or set model.path")
	}
	if err := a.session.Initialize(cmd.Context(), a.request); err != nil {
		cli.WriteError(cmd.ErrOrStderr(), err)
		return err
	}
	return nil
}
