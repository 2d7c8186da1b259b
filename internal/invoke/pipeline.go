// Package invoke runs the protection binary against a blueprint.
//
// A Pipeline makes sure the required binary is installed, merges license
// settings into the blueprint, writes it to a private temp file and runs
// "<binary> --blueprint <file>". Invocations are serialized.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/idanshimon/protect-web/internal/blueprint"
	"github.com/idanshimon/protect-web/internal/config"
	"github.com/idanshimon/protect-web/internal/exithook"
	"github.com/idanshimon/protect-web/internal/telemetry"
)

const tracerName = "github.com/idanshimon/protect-web/internal/invoke"

// Installer is the part of the artifact manager the pipeline depends on.
type Installer interface {
	Version() string
	BinaryPath() string
	NeedsAcquisition() bool
	IsInstalled() bool
	Acquire(ctx context.Context) error
}

// Output is what the protection binary printed on success.
type Output struct {
	Stdout string
	Stderr string
}

// Config holds configuration for a Pipeline.
type Config struct {
	Installer Installer
	// HasCredentials reports whether an acquisition can be attempted.
	HasCredentials bool
	LicenseToken   string
	LicenseRegion  string
	// Timeout bounds a whole invocation, including any download. Zero
	// means no limit.
	Timeout time.Duration
	// TempDir is where blueprint files are written. Defaults to
	// os.TempDir().
	TempDir string
	Metrics *telemetry.Metrics
	Logger  config.Logger
}

// Pipeline runs protection passes one at a time.
type Pipeline struct {
	mu sync.Mutex

	installer      Installer
	hasCredentials bool
	licenseToken   string
	licenseRegion  string
	timeout        time.Duration
	tempDir        string
	metrics        *telemetry.Metrics
	logger         config.Logger
	tracer         trace.Tracer
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Installer == nil {
		return nil, fmt.Errorf("Installer is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: %s", cfg.Timeout)
	}
	return &Pipeline{
		installer:      cfg.Installer,
		hasCredentials: cfg.HasCredentials,
		licenseToken:   cfg.LicenseToken,
		licenseRegion:  cfg.LicenseRegion,
		timeout:        cfg.Timeout,
		tempDir:        cfg.TempDir,
		metrics:        cfg.Metrics,
		logger:         config.OrNop(cfg.Logger),
		tracer:         otel.Tracer(tracerName),
	}, nil
}

// Invoke protects according to bp. bp itself is never modified.
//
// The sequence is: ensure the binary is installed, merge license settings,
// write the merged blueprint to a temp file, run the binary. The temp file
// is removed when Invoke returns, and by an exit hook if the process dies
// first.
func (p *Pipeline) Invoke(ctx context.Context, bp *blueprint.Map) (out Output, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "invoke.Invoke", trace.WithAttributes(
		attribute.String("invocation.id", id),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		p.metrics.ObserveInvocation(err, time.Since(start))
	}()

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err = p.invoke(runCtx, id, bp)
	if err != nil && p.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %w", ErrTimeout, p.timeout, err)
	}
	if err != nil {
		p.logger.Error("protection failed", "invocation_id", id, "error", err)
		return Output{}, err
	}

	p.logger.Info("protection completed", "invocation_id", id,
		"duration", time.Since(start).Round(time.Millisecond).String())
	return out, nil
}

func (p *Pipeline) invoke(ctx context.Context, id string, bp *blueprint.Map) (Output, error) {
	binPath, err := p.ensureBinary(ctx)
	if err != nil {
		return Output{}, err
	}

	merged, err := blueprint.MergeCredentials(bp, p.licenseToken, p.licenseRegion)
	if err != nil {
		return Output{}, err
	}

	bpPath, cleanup, err := p.writeBlueprint(id, merged)
	if err != nil {
		return Output{}, err
	}
	defer cleanup()

	return p.run(ctx, id, binPath, bpPath)
}

// ensureBinary acquires the required version when the cache is stale and
// credentials are available. Without credentials an existing binary of
// unknown version is used with a warning.
func (p *Pipeline) ensureBinary(ctx context.Context) (string, error) {
	version := p.installer.Version()
	if !p.installer.NeedsAcquisition() {
		return p.installer.BinaryPath(), nil
	}

	if p.hasCredentials {
		if err := p.installer.Acquire(ctx); err != nil {
			return "", err
		}
		return p.installer.BinaryPath(), nil
	}

	if p.installer.IsInstalled() {
		p.logger.Warn("Digital.ai Web App Protection "+version+" was not downloaded; using the installed binary",
			"path", p.installer.BinaryPath(), "hint", "set "+config.EnvAPIKey+" and "+config.EnvAPISecret)
		return p.installer.BinaryPath(), nil
	}

	return "", missingCredentialsError(version)
}

// writeBlueprint serializes bp into a private temp directory and returns
// the file path and a cleanup func.
func (p *Pipeline) writeBlueprint(id string, bp *blueprint.Map) (string, func(), error) {
	data, err := blueprint.Encode(bp)
	if err != nil {
		return "", nil, fmt.Errorf("encode blueprint: %w", err)
	}

	dir, err := os.MkdirTemp(p.tempDir, "protect-web-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cancelHook := exithook.RemoveOnExit(dir)

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("failed to remove temp blueprint", "path", dir, "error", err)
		}
		cancelHook()
	}

	path := filepath.Join(dir, id+".blueprint")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp blueprint: %w", err)
	}
	return path, cleanup, nil
}
