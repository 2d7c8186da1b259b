package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Settings holds runtime configuration sourced from the environment.
type Settings struct {
	APIKey        string        `env:"A4WEB_API_KEY"`
	APISecret     string        `env:"A4WEB_API_SECRET"`
	LicenseToken  string        `env:"A4WEB_LICENSE_TOKEN"`
	LicenseRegion string        `env:"A4WEB_LICENSE_REGION"`
	InstallDir    string        `env:"A4WEB_INSTALL_DIR"`
	Keyring       string        `env:"A4WEB_KEYRING"`
	Timeout       time.Duration `env:"A4WEB_TIMEOUT,default=0s"`
	LogLevel      string        `env:"A4WEB_LOG_LEVEL,default=info"`
	APIURL        string        `env:"A4WEB_API_URL"`
	MetricsFile   string        `env:"A4WEB_METRICS_FILE"`
}

// Load returns Settings populated from environment variables.
// InstallDir defaults to <user cache dir>/protect-web/installs.
func Load(ctx context.Context) (Settings, error) {
	var s Settings
	if err := envconfig.Process(ctx, &s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if s.InstallDir == "" {
		dir, err := DefaultInstallDir()
		if err != nil {
			return Settings{}, err
		}
		s.InstallDir = dir
	}
	if s.Timeout < 0 {
		return Settings{}, fmt.Errorf("invalid %s: %s", EnvTimeout, s.Timeout)
	}

	return s, nil
}

// DefaultInstallDir returns the install location used when none is configured.
func DefaultInstallDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(cacheDir, "protect-web", "installs"), nil
}

// HasCredentials reports whether both download credentials are configured.
func (s Settings) HasCredentials() bool {
	return s.APIKey != "" && s.APISecret != ""
}

// APIBase returns the developer portal API root, always with a trailing slash.
// An explicit A4WEB_API_URL wins over the region-derived host.
func (s Settings) APIBase() string {
	if s.APIURL != "" {
		return strings.TrimRight(s.APIURL, "/") + "/"
	}
	return fmt.Sprintf("https://api.%s/", ADPServer(s.LicenseRegion))
}

// APIServicesBase returns the services root used by the download endpoints.
func (s Settings) APIServicesBase() string {
	return s.APIBase() + "services/"
}

// ADPServer returns the developer portal host for a license region.
func ADPServer(region string) string {
	tld, ok := regionTLD[strings.ToLower(strings.TrimSpace(region))]
	if !ok {
		tld = "com"
	}
	return adpServerBase + "." + tld
}

// BinaryPath returns the path of the protection binary inside InstallDir.
// binaryName is the platform-specific executable name.
func (s Settings) BinaryPath(binaryName string) string {
	return filepath.Join(s.InstallDir, "bin", binaryName)
}
