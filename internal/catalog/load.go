package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a catalog document encoding.
type Format string

const (
	// FormatJSON decodes catalogs exported as JSON.
	FormatJSON Format = "json"
	// FormatYAML decodes hand-maintained YAML catalogs.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned when a file extension maps to no decoder.
var ErrUnknownFormat = errors.New("catalog: unknown format")

// FormatFromPath picks a decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Decode reads a catalog document in the given format. Unknown fields are
// rejected so that typos in hand-written catalogs do not silently drop objects.
func Decode(r io.Reader, format Format) (*Catalog, error) {
	var cat Catalog
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cat); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &cat, nil
}

// LoadFile reads and validates a catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cat, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}
