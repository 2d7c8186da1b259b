package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/idanshimon/protect-web/internal/config"
	"github.com/idanshimon/protect-web/internal/lockfile"
	"github.com/idanshimon/protect-web/internal/platform"
	"github.com/idanshimon/protect-web/internal/telemetry"
	"github.com/idanshimon/protect-web/internal/versioncache"
)

const tracerName = "github.com/idanshimon/protect-web/internal/artifact"

// ImageExpander unpacks a disk image into a directory and removes the image.
type ImageExpander interface {
	Expand(ctx context.Context, imagePath, destDir string) error
}

// Manager owns the install location and runs the acquisition sequence.
type Manager struct {
	client     *Client
	expander   ImageExpander
	cache      *versioncache.Cache
	installDir string
	apiKey     string
	apiSecret  string
	product    string
	version    string
	platform   *platform.Info
	metrics    *telemetry.Metrics
	logger     config.Logger
	tracer     trace.Tracer
}

// ManagerConfig holds configuration for the Manager.
type ManagerConfig struct {
	Client *Client
	// Expander handles .dmg packages.
	Expander ImageExpander
	// InstallDir is wiped and recreated on every acquisition.
	InstallDir string
	APIKey     string
	APISecret  string
	// Product and Version default to config.Product and
	// config.RequiredVersion.
	Product  string
	Version  string
	Platform *platform.Info
	Metrics  *telemetry.Metrics
	Logger   config.Logger
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("Client is required")
	}
	if cfg.InstallDir == "" {
		return nil, fmt.Errorf("InstallDir is required")
	}
	if cfg.Platform == nil {
		return nil, fmt.Errorf("Platform is required")
	}

	product := cfg.Product
	if product == "" {
		product = config.Product
	}
	version := cfg.Version
	if version == "" {
		version = config.RequiredVersion
	}

	return &Manager{
		client:     cfg.Client,
		expander:   cfg.Expander,
		cache:      versioncache.New(cfg.InstallDir),
		installDir: cfg.InstallDir,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		product:    product,
		version:    version,
		platform:   cfg.Platform,
		metrics:    cfg.Metrics,
		logger:     config.OrNop(cfg.Logger),
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Version returns the version this manager installs.
func (m *Manager) Version() string {
	return m.version
}

// Cache returns the version cache of the install location.
func (m *Manager) Cache() *versioncache.Cache {
	return m.cache
}

// BinaryPath returns where the protection binary lives once installed.
func (m *Manager) BinaryPath() string {
	return filepath.Join(m.installDir, "bin", m.platform.BinaryName(config.BinaryName))
}

// NeedsAcquisition reports whether the cached install differs from the
// version this manager installs.
func (m *Manager) NeedsAcquisition() bool {
	return versioncache.NeedsAcquisition(m.cache.Read(), m.version)
}

// IsInstalled reports whether the binary exists and is executable. It says
// nothing about the binary's version.
func (m *Manager) IsInstalled() bool {
	info, err := os.Stat(m.BinaryPath())
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if m.platform.IsWindows() {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// Acquire downloads and installs the required version: authenticate,
// resolve, fetch, expand disk images, check the binary is present, then
// record the version. It holds the
// install lock throughout. On any failure the install location is removed
// so a partial install is never mistaken for a good one.
func (m *Manager) Acquire(ctx context.Context) (err error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "artifact.Acquire", trace.WithAttributes(
		attribute.String("product", m.product),
		attribute.String("version", m.version),
		attribute.String("platform", m.platform.Distribution()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		m.metrics.ObserveAcquisition(err, time.Since(start))
	}()

	if m.apiKey == "" || m.apiSecret == "" {
		return fmt.Errorf("%w: %s and %s are required to download %s",
			ErrAuthentication, config.EnvAPIKey, config.EnvAPISecret, productLabel(m.version))
	}

	lock, err := lockfile.AcquireLock(ctx, filepath.Dir(m.installDir))
	if err != nil {
		return fmt.Errorf("lock install location: %w", err)
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			m.logger.Warn("failed to release install lock", "path", lock.Path(), "error", relErr)
		}
	}()

	m.logger.Info("acquiring protection binary", "version", m.version, "platform", m.platform.Distribution())
	if err := m.acquire(ctx); err != nil {
		if rmErr := os.RemoveAll(m.installDir); rmErr != nil {
			m.logger.Warn("failed to remove install location", "path", m.installDir, "error", rmErr)
		}
		return err
	}

	m.logger.Info("protection binary installed", "version", m.version, "path", m.BinaryPath(),
		"duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}

func (m *Manager) acquire(ctx context.Context) error {
	var token AccessToken
	if err := m.stage(ctx, "authenticate", func(ctx context.Context) (err error) {
		token, err = m.client.Authenticate(ctx, m.apiKey, m.apiSecret)
		return err
	}); err != nil {
		return err
	}

	var desc Descriptor
	if err := m.stage(ctx, "resolve", func(ctx context.Context) (err error) {
		desc, err = m.client.ResolveArtifact(ctx, token, m.product, m.version, m.platform.Distribution())
		return err
	}); err != nil {
		return err
	}

	if err := m.stage(ctx, "fetch", func(ctx context.Context) error {
		return m.client.FetchArtifact(ctx, token, m.product, m.version, desc, m.installDir)
	}); err != nil {
		return err
	}

	if desc.IsDiskImage() {
		if err := m.stage(ctx, "expand", func(ctx context.Context) error {
			if m.expander == nil {
				return fmt.Errorf("no disk image expander configured for %s", desc.Filename)
			}
			return m.expander.Expand(ctx, filepath.Join(m.installDir, filepath.Base(desc.Filename)), m.installDir)
		}); err != nil {
			return err
		}
	}

	if err := m.stage(ctx, "install", func(context.Context) error {
		return m.ensureExecutable(desc.Filename)
	}); err != nil {
		return err
	}

	return m.stage(ctx, "record", func(context.Context) error {
		return m.cache.Write(m.version)
	})
}

func (m *Manager) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := m.tracer.Start(ctx, "artifact."+name)
	defer span.End()

	m.logger.Debug("acquisition stage", "stage", name)
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ensureExecutable checks that the package delivered the binary and marks
// it executable. A package without it is a failed download, so the version
// is never recorded for it.
func (m *Manager) ensureExecutable(pkg string) error {
	path := m.BinaryPath()
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: package %s did not contain %s", ErrDownload, pkg, filepath.Join("bin", filepath.Base(path)))
	}
	if err != nil {
		return fmt.Errorf("%w: inspect %s: %v", ErrDownload, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrDownload, path)
	}
	if m.platform.IsWindows() || info.Mode().Perm()&0o111 != 0 {
		return nil
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o755); err != nil {
		return fmt.Errorf("%w: mark %s executable: %v", ErrDownload, path, err)
	}
	return nil
}
