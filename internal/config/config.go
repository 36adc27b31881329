// Package config loads and validates the catalog-export configuration.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/catalog-export/internal/codegen/render"
)

// DefaultPath is the config file looked up when none is named explicitly.
const DefaultPath = "catalog-export.toml"

// GoConfig captures settings of the go render target.
type GoConfig struct {
	Package     string `toml:"package"`
	ModelImport string `toml:"model_import"`
}

// Config mirrors the expected catalog-export TOML schema.
type Config struct {
	Catalog string   `toml:"catalog"`
	Out     string   `toml:"out"`
	Target  string   `toml:"target"`
	Tiger   bool     `toml:"tiger"`
	Go      GoConfig `toml:"go"`
}

// JobPlan is the fully-resolved configuration used by downstream stages.
// Paths are resolved against the directory holding the config file.
type JobPlan struct {
	Catalog string
	Out     string
	Target  render.Target
	Tiger   bool
	Render  render.Options
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	Strict bool
}

// Result wraps a loaded job plan alongside any non-fatal warnings.
type Result struct {
	Plan     JobPlan
	Warnings []string
}

var knownKeys = map[string]struct{}{
	"catalog": {},
	"out":     {},
	"target":  {},
	"tiger":   {},
	"go":      {},
}

var knownGoKeys = map[string]struct{}{
	"package":      {},
	"model_import": {},
}

// Load reads, validates, and resolves a catalog-export configuration file.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	for _, check := range []struct {
		label string
		keys  []string
	}{
		{"unknown configuration keys", unknownKeys(raw, knownKeys)},
		{"unknown go keys", unknownKeys(section(raw, "go"), knownGoKeys)},
	} {
		if len(check.keys) == 0 {
			continue
		}
		message := fmt.Sprintf("%s: %s: %s", path, check.label, strings.Join(check.keys, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	target, err := ParseTarget(cfg.Target)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if target == render.TargetGo {
		if err := validateGo(path, cfg.Go); err != nil {
			return res, err
		}
	}

	out, err := resolveOut(path, cfg.Out)
	if err != nil {
		return res, err
	}

	res.Plan = JobPlan{
		Catalog: ResolveCatalog(filepath.Dir(path), cfg.Catalog),
		Out:     out,
		Target:  target,
		Tiger:   cfg.Tiger,
		Render: render.Options{
			GoPackage:     cfg.Go.Package,
			GoModelImport: cfg.Go.ModelImport,
		},
	}

	return res, nil
}

func section(raw map[string]any, key string) map[string]any {
	record, _ := raw[key].(map[string]any)
	return record
}

func unknownKeys(record map[string]any, known map[string]struct{}) []string {
	unknown := make([]string, 0)
	for key := range record {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// ParseTarget validates a render target name. The empty string selects
// TypeScript.
func ParseTarget(target string) (render.Target, error) {
	switch t := render.Target(target); t {
	case "":
		return render.TargetTypeScript, nil
	case render.TargetTypeScript, render.TargetGo:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported target %q", target)
	}
}

// ValidateGoPackage reports whether pkg can be used as a package clause.
func ValidateGoPackage(pkg string) error {
	if pkg == "" {
		return errors.New("go package is required")
	}
	if !token.IsIdentifier(pkg) || token.Lookup(pkg) != token.IDENT {
		return fmt.Errorf("invalid go package name %q", pkg)
	}
	return nil
}

func validateGo(path string, cfg GoConfig) error {
	if err := ValidateGoPackage(cfg.Package); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if cfg.ModelImport == "" {
		return fmt.Errorf("%s: go model_import is required", path)
	}
	return nil
}

// ResolveOut checks that out is a relative path that stays below baseDir and
// joins the two.
func ResolveOut(baseDir, out string) (string, error) {
	if filepath.IsAbs(out) {
		return "", errors.New("out must be a relative path")
	}

	cleaned := filepath.Clean(out)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.New("out must not traverse upwards")
	}

	return filepath.Join(baseDir, cleaned), nil
}

func resolveOut(path, out string) (string, error) {
	if out == "" {
		return "", nil
	}
	resolved, err := ResolveOut(filepath.Dir(path), out)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return resolved, nil
}

// ResolveCatalog joins a relative catalog path with baseDir. Database URLs and
// SQLite "file:" URIs are returned unchanged.
func ResolveCatalog(baseDir, catalog string) string {
	if catalog == "" || filepath.IsAbs(catalog) || isURL(catalog) {
		return catalog
	}
	return filepath.Join(baseDir, catalog)
}

func isURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(strings.ToLower(s), "file:")
}
