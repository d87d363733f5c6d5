package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/amee-go/internal/api"
	"github.com/tonimelisma/amee-go/internal/config"
	"github.com/tonimelisma/amee-go/internal/drill"
	"github.com/tonimelisma/amee-go/internal/profile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagHost       string
	flagDebug      bool
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagMetrics    bool
)

// skipConfigCommands lists commands that work offline and never need a
// resolved config. Matched on CommandPath() so a future "items route"
// would not be skipped by accident.
var skipConfigCommands = map[string]bool{
	"amee-go route": true,
}

// CLIFlags is the snapshot of global flags a command runs with.
type CLIFlags struct {
	JSON    bool
	Quiet   bool
	Metrics bool
}

// CLIContext carries everything a command needs once configuration has
// been resolved. It is stored on the command's context by the root
// pre-run and retrieved with cliContextFrom.
type CLIContext struct {
	Flags    CLIFlags
	Cfg      *config.Config
	Logger   *slog.Logger
	Client   *api.Client
	Registry *prometheus.Registry
	Out      io.Writer
}

// Resolver returns a drill resolver backed by the context's client.
func (cc *CLIContext) Resolver() *drill.Resolver {
	return drill.NewResolver(cc.Client, cc.Logger)
}

// Profiles returns a profile service backed by the context's client.
func (cc *CLIContext) Profiles() *profile.Service {
	return profile.NewService(cc.Client, cc.Resolver(), cc.Logger)
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext installed by the root pre-run.
func cliContextFrom(ctx context.Context) (*CLIContext, error) {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errors.New("internal error: command ran without a resolved configuration")
	}

	return cc, nil
}

// clientFactory builds the API client from a resolved config. Tests
// replace it to point commands at an httptest server.
var clientFactory = newAPIClient

func newAPIClient(cfg *config.Config, logger *slog.Logger, metrics *api.Metrics) *api.Client {
	return api.NewClient(clientOptions(cfg.Settings(), logger, metrics))
}

// clientOptions maps resolved config settings onto API client options.
func clientOptions(s config.Settings, logger *slog.Logger, metrics *api.Metrics) api.Options {
	return api.Options{
		BaseURL:           s.BaseURL,
		AuthURL:           s.AuthURL,
		APIKey:            s.APIKey,
		APIPassword:       s.APIPassword,
		HTTPClient:        &http.Client{Timeout: s.Timeout},
		Logger:            logger,
		UserAgent:         s.UserAgent,
		RequestsPerSecond: s.RequestsPerSecond,
		Debug:             s.Debug,
		Metrics:           metrics,
	}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "amee-go",
		Short:   "AMEE carbon accounting API client",
		Long:    "Validate paths, drill down category items, and manage profiles on an AMEE service.",
		Version: version,
		// Errors are printed by main; usage is noise after a runtime failure.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !flagMetrics || skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			cc, err := cliContextFrom(cmd.Context())
			if err != nil {
				return err
			}

			return printMetrics(cmd.ErrOrStderr(), cc.Registry)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagHost, "host", "", "API host (overrides config and "+config.EnvHost+")")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log request and response bodies")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", false, "print request counters to stderr on exit")

	cmd.AddCommand(newRouteCmd())
	cmd.AddCommand(newDrillCmd())
	cmd.AddCommand(newRequestCmd())
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newItemsCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and installs a CLIContext on the command's context.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Host:       flagHost,
	}

	// Only pass --debug if the user explicitly set it.
	if cmd.Flags().Changed("debug") {
		cli.Debug = &flagDebug
	}

	bootstrap := buildLogger(nil)

	cfg, err := config.Resolve(config.ReadEnvOverrides(), cli, bootstrap)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := buildLogger(cfg)
	registry := prometheus.NewRegistry()

	cc := &CLIContext{
		Flags:    CLIFlags{JSON: flagJSON, Quiet: flagQuiet, Metrics: flagMetrics},
		Cfg:      cfg,
		Logger:   logger,
		Client:   clientFactory(cfg, logger, api.NewMetrics(registry)),
		Registry: registry,
		Out:      cmd.OutOrStdout(),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. The debug setting
// implies debug level so that body logging is visible.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		if cfg.Debug {
			level = slog.LevelDebug
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
