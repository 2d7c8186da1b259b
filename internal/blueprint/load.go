package blueprint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/idanshimon/protect-web/internal/platform"
)

// Format names a blueprint encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatLua  Format = "lua"
)

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".lua":
		return FormatLua
	default:
		return FormatJSON
	}
}

// Decode parses data in the given format.
func Decode(ctx context.Context, data []byte, format Format, info *platform.Info) (*Map, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	case FormatLua:
		return DecodeLua(ctx, string(data), info)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidBlueprint, format)
	}
}

// LoadFile reads and decodes a blueprint file, choosing the format from its
// extension.
func LoadFile(ctx context.Context, path string, info *platform.Info) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	m, err := Decode(ctx, data, FormatFromPath(path), info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Encode serializes bp as JSON in document order.
func Encode(bp *Map) ([]byte, error) {
	if bp == nil {
		bp = NewMap()
	}
	return json.Marshal(bp)
}
