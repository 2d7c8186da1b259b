package config

// Distribution service and product identity.
const (
	// Product is the product identifier used by the download service.
	Product = "SecureJS"

	// RequiredVersion is the protect-web build this release drives.
	// The cached install is compared against it for equality only.
	RequiredVersion = "6.3.0"

	// ArtifactPrefix selects protect-web packages from the server file list.
	ArtifactPrefix = "protect-web"

	// BinaryName is the executable name inside the install's bin directory.
	BinaryName = "protect-web"

	// SupportEmail is included in user-facing failures.
	SupportEmail = "support@digital.ai"

	// MetadataFile records the installed version inside the install location.
	MetadataFile = "metadata.json"

	// InvocationMarkerEnv tells the protection binary it was launched by
	// this wrapper. It is only ever set in the child's environment.
	InvocationMarkerEnv = "SJS_NPM_INVOCATION"
)

// adpServerBase is the developer portal host without its top-level domain.
const adpServerBase = "developer.arxan"

// regionTLD maps a license region to the top-level domain of its portal.
// Unknown or empty regions use the global ".com" portal.
var regionTLD = map[string]string{
	"eu": "eu",
}

// Environment variable names.
const (
	EnvAPIKey        = "A4WEB_API_KEY"
	EnvAPISecret     = "A4WEB_API_SECRET"
	EnvLicenseToken  = "A4WEB_LICENSE_TOKEN"
	EnvLicenseRegion = "A4WEB_LICENSE_REGION"
	EnvInstallDir    = "A4WEB_INSTALL_DIR"
	EnvKeyring       = "A4WEB_KEYRING"
	EnvTimeout       = "A4WEB_TIMEOUT"
	EnvLogLevel      = "A4WEB_LOG_LEVEL"
	EnvAPIURL        = "A4WEB_API_URL"
	EnvMetricsFile   = "A4WEB_METRICS_FILE"
)
