// Package config provides environment-driven settings, distribution
// constants and the structured Logger used across protect-web.
//
// Settings are read with go-envconfig. Callers that want .env support load
// it with godotenv before calling Load, so an explicit environment always
// wins over the file.
//
// The Logger interface mirrors the key-value style of zerolog; the default
// is a no-op so packages never need a nil check.
package config
