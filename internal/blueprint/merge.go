package blueprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/idanshimon/protect-web/internal/config"
)

// Well-known blueprint keys. Matching is case-insensitive.
const (
	KeyGlobalConfiguration = "globalConfiguration"
	KeyEphemeralMode       = "ephemeralMode"
	KeyLicenseRegion       = "licenseRegion"
	KeyTargetType          = "targetType"
	KeyAppID               = "appID"
	KeyTargets             = "targets"
	KeyTarget              = "target"
	KeyInput               = "input"
	KeyOutputDirectory     = "outputDirectory"
)

// DefaultTargetType is used when the blueprint does not name one.
const DefaultTargetType = "browser"

// ErrMissingLicenseToken is returned when neither the blueprint nor the
// environment supplies a license token.
var ErrMissingLicenseToken = errors.New("missing license token")

// MergeCredentials injects the ephemeral license token and optional license
// region into globalConfiguration, never overwriting values already in the
// blueprint.
//
// A key that is present but null or "" counts as absent and is filled in
// place under its existing spelling. Only a non-blank value blocks the
// environment value.
//
// The input is not modified. On success a merged copy is returned; if no
// ephemeralMode value exists after merging, nothing is returned and the
// error wraps ErrMissingLicenseToken.
func MergeCredentials(bp *Map, token, region string) (*Map, error) {
	merged := bp.Clone()
	if merged == nil {
		merged = NewMap()
	}

	global, err := merged.EnsureMap(KeyGlobalConfiguration)
	if err != nil {
		return nil, err
	}

	if token != "" {
		global.SetIfAbsent(KeyEphemeralMode, token)
	}
	if region != "" {
		global.SetIfAbsent(KeyLicenseRegion, region)
	}

	if _, v, ok := global.Lookup(KeyEphemeralMode); !ok || isBlank(v) {
		return nil, fmt.Errorf("%w: could not find environment variable required to license protection: %s. "+
			"Set it or add %s.%s to the blueprint",
			ErrMissingLicenseToken, config.EnvLicenseToken, KeyGlobalConfiguration, KeyEphemeralMode)
	}

	return merged, nil
}

// Default returns the blueprint used when a caller supplies none.
func Default() *Map {
	guard := NewMap()
	guard.Set("guardConfiguration", NewMap())
	m := NewMap()
	m.Set("guardConfigurations", guard)
	return m
}

// TargetType returns globalConfiguration.targetType lowercased, or
// DefaultTargetType when unset.
func TargetType(bp *Map) string {
	global, ok := bp.LookupMap(KeyGlobalConfiguration)
	if !ok {
		return DefaultTargetType
	}
	targetType, ok := global.LookupString(KeyTargetType)
	if !ok || strings.TrimSpace(targetType) == "" {
		return DefaultTargetType
	}
	return strings.ToLower(strings.TrimSpace(targetType))
}

// SetGlobalDefault sets globalConfiguration.<key> unless already present,
// creating globalConfiguration if needed.
func SetGlobalDefault(bp *Map, key string, value any) (bool, error) {
	global, err := bp.EnsureMap(KeyGlobalConfiguration)
	if err != nil {
		return false, err
	}
	return global.SetIfAbsent(key, value), nil
}

// ReplaceTargets discards every caller-supplied targets declaration and
// routes the single protection target to input and output.
func ReplaceTargets(bp *Map, input, output string) {
	target := NewMap()
	target.Set(KeyInput, input)
	target.Set(KeyOutputDirectory, output)

	targets := NewMap()
	targets.Set(KeyTarget, target)

	bp.DeleteFold(KeyTargets)
	bp.Set(KeyTargets, targets)
}
