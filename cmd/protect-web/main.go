package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/idanshimon/protect-web/internal/artifact"
	"github.com/idanshimon/protect-web/internal/config"
	"github.com/idanshimon/protect-web/internal/diskimage"
	"github.com/idanshimon/protect-web/internal/invoke"
	"github.com/idanshimon/protect-web/internal/platform"
	"github.com/idanshimon/protect-web/internal/telemetry"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "protect-web",
		Short:         "Acquire and run the protect-web code protection tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newProtectCommand())
	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// app is the wired set of components a command runs against.
type app struct {
	settings config.Settings
	logger   config.Logger
	platform *platform.Info
	manager  *artifact.Manager
	pipeline *invoke.Pipeline
	metrics  *telemetry.Metrics
	shutdown telemetry.ShutdownFunc
}

// newApp loads configuration from the environment (and .env, if present)
// and builds the acquisition and invocation components.
func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	settings, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger := config.NewConsoleLogger(stderr, settings.LogLevel)

	shutdown, err := telemetry.InitTracing(ctx, config.BinaryName, Version, os.Getenv(telemetry.EnvOTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		shutdown(ctx)
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	logger.Debug("detected platform", "os", info.OS, "arch", info.Arch, "distribution", info.Distribution())

	var verifier *artifact.Verifier
	if settings.Keyring != "" {
		verifier, err = artifact.NewVerifier(settings.Keyring)
		if err != nil {
			shutdown(ctx)
			return nil, err
		}
	}

	client, err := artifact.NewClient(artifact.ClientConfig{
		APIBase:      settings.APIBase(),
		ServicesBase: settings.APIServicesBase(),
		Verifier:     verifier,
		Logger:       logger,
	})
	if err != nil {
		shutdown(ctx)
		return nil, err
	}

	metrics := telemetry.NewMetrics()
	manager, err := artifact.NewManager(artifact.ManagerConfig{
		Client:     client,
		Expander:   diskimage.NewExpander(nil, logger),
		InstallDir: settings.InstallDir,
		APIKey:     settings.APIKey,
		APISecret:  settings.APISecret,
		Platform:   info,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		shutdown(ctx)
		return nil, err
	}

	pipeline, err := invoke.New(invoke.Config{
		Installer:      manager,
		HasCredentials: settings.HasCredentials(),
		LicenseToken:   settings.LicenseToken,
		LicenseRegion:  settings.LicenseRegion,
		Timeout:        settings.Timeout,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		shutdown(ctx)
		return nil, err
	}

	return &app{
		settings: settings,
		logger:   logger,
		platform: info,
		manager:  manager,
		pipeline: pipeline,
		metrics:  metrics,
		shutdown: shutdown,
	}, nil
}

// loadDotEnv applies a .env file (default: ./.env) without overriding the
// environment. Only a missing file is tolerated.
func loadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Close flushes metrics and traces.
func (a *app) Close(ctx context.Context) {
	if err := a.metrics.WriteTextfile(a.settings.MetricsFile); err != nil {
		a.logger.Warn("failed to write metrics", "path", a.settings.MetricsFile, "error", err)
	}
	if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}

// withApp builds an app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}
