package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for unknown formats or file extensions.
var ErrUnsupportedFormat = errors.New("unsupported topology format")

// Format identifies a topology document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatHCL  Format = "hcl"
)

// ParseFormat resolves a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "dot", "gv", "graphviz":
		return FormatDOT, nil
	case "hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Decode parses data in the given format. filename is used in diagnostics.
func Decode(format Format, filename string, data []byte) (*Document, error) {
	switch format {
	case FormatYAML, FormatJSON:
		return DecodeYAML(data)
	case FormatDOT:
		return DecodeDOT(data)
	case FormatHCL:
		return DecodeHCL(filename, data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
