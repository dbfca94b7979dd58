package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/pixel-overlay-go/app"
	"github.com/soocke/pixel-overlay-go/config"
	"github.com/soocke/pixel-overlay-go/debug"
	"github.com/soocke/pixel-overlay-go/ui/shell"
)

// Version is the application version.
const Version = "0.1.0"

const windowTitle = "Pixel Overlay"

// NewLoggerFunc builds the process logger for a level.
type NewLoggerFunc func(level slog.Leveler) *slog.Logger

var (
	configPath   string
	envPath      string
	debugFlag    bool
	backend      string
	modelPath    string
	templatePath string
	triggerKey   string
	suppress     bool

	newLogger NewLoggerFunc = func(level slog.Leveler) *slog.Logger {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
)

var rootCmd = &cobra.Command{
	Use:     "pixel-overlay",
	Short:   "Screen overlay that detects targets and moves the cursor on a trigger key",
	Version: Version,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runOverlay(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

// Execute runs the command tree with a context cancelled on SIGINT or
// SIGTERM.
func Execute(fn NewLoggerFunc) {
	if fn != nil {
		newLogger = fn
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "JSON configuration file")
	pf.StringVar(&envPath, "env", ".env", "dotenv file merged into the environment before overrides")
	pf.BoolVar(&debugFlag, "debug", false, "verbose logging and periodic runtime stats")
	pf.StringVar(&backend, "backend", "", "detector backend: subprocess, gocv or template")
	pf.StringVar(&modelPath, "model", "", "detection model path")
	pf.StringVar(&templatePath, "template", "", "reference image for the template backend")
	pf.StringVar(&triggerKey, "key", "", "trigger key (e.g. t, f8, space)")
	pf.BoolVar(&suppress, "suppress", false, "swallow the trigger key (Windows only)")
}

// loadConfig layers file, environment and flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotenv(envPath); err != nil {
		return nil, fmt.Errorf("dotenv %s: %w", envPath, err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = debugFlag
	}
	if flags.Changed("backend") {
		cfg.DetectorBackend = backend
	}
	if flags.Changed("model") {
		cfg.ModelPath = modelPath
	}
	if flags.Changed("template") {
		cfg.TemplatePath = templatePath
		if !flags.Changed("backend") {
			cfg.DetectorBackend = config.BackendTemplate
		}
	}
	if flags.Changed("key") {
		cfg.TriggerKey = triggerKey
	}
	if flags.Changed("suppress") {
		cfg.SuppressTrigger = suppress
	}
	_ = cfg.Validate()
	return cfg, nil
}

func loggerFor(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return newLogger(level)
}

// runOverlay builds the container and blocks in the UI until exit.
func runOverlay(ctx context.Context, cfg *config.Config) error {
	logger := loggerFor(cfg)
	c, err := app.Build(cfg, logger, app.DefaultFactories())
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	if cfg.Debug {
		dctx, cancel := context.WithCancel(ctx)
		defer cancel()
		debug.StartGoroutineLogger(dctx, 5*time.Second, logger.With("component", "debug"))
		debug.StartMemLogger(dctx, 5*time.Second, logger.With("component", "debug"))
	}
	logger.Info("starting", "source", cfg.Source, "backend", cfg.DetectorBackend, "trigger_key", cfg.TriggerKey)
	return shell.Run(ctx, c, windowTitle)
}
