package artifact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/idanshimon/protect-web/internal/config"
)

// Acquisition failure kinds. Every error returned by this package wraps
// exactly one of them.
var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrNoArtifactFound    = errors.New("no matching artifact found")
	ErrEntitlementOrQuery = errors.New("artifact query failed")
	ErrDownload           = errors.New("download failed")
	ErrVerification       = errors.New("signature verification failed")
)

// RedactedError carries a message scrubbed of credentials while keeping
// the original error reachable through errors.Is and errors.As.
type RedactedError struct {
	message string
	wrapped error
}

// Error returns the redacted message.
func (e *RedactedError) Error() string {
	return e.message
}

// Unwrap returns the wrapped error.
func (e *RedactedError) Unwrap() error {
	return e.wrapped
}

// newRedactedError builds a RedactedError whose message is
// "<kind>: <context>. Error message: <redacted upstream>".
func newRedactedError(kind, err error, context string, secrets ...string) error {
	if err == nil {
		return nil
	}
	return &RedactedError{
		message: fmt.Sprintf("%s: %s. Error message: %s", kind, context, redact(err.Error(), secrets...)),
		wrapped: errors.Join(kind, err),
	}
}

var bearerPattern = regexp.MustCompile(`(?i)(bearer|basic)\s+[A-Za-z0-9._~+/=-]+`)

// redact removes known secrets and authorization values from msg and
// limits its length.
func redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "[REDACTED]")
		}
	}
	msg = bearerPattern.ReplaceAllString(msg, "$1 [REDACTED]")

	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}

func productLabel(version string) string {
	return "Digital.ai Web App Protection " + version
}

func noArtifactError(version string) error {
	return fmt.Errorf("%w: %s could not be downloaded. Please contact %s for help resolving this issue",
		ErrNoArtifactFound, productLabel(version), config.SupportEmail)
}

func entitlementError(version string, cause error) error {
	return fmt.Errorf("%w: %s could not be downloaded. Make sure you have the \"Product download\" "+
		"entitlement associated with the API key: %v", ErrEntitlementOrQuery, productLabel(version), cause)
}
