// Package pipeline orchestrates a catalog export: configuration, catalog
// loading, generation, rendering, and writing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/electwix/catalog-export/internal/catalog"
	"github.com/electwix/catalog-export/internal/catalog/snapshot"
	"github.com/electwix/catalog-export/internal/codegen"
	"github.com/electwix/catalog-export/internal/codegen/ast"
	"github.com/electwix/catalog-export/internal/codegen/render"
	"github.com/electwix/catalog-export/internal/config"
	"github.com/electwix/catalog-export/internal/logging"
)

// Generator builds a declaration tree from a catalog.
type Generator interface {
	Generate(ctx context.Context, cat *catalog.Catalog) (*ast.File, error)
}

var _ Generator = (*codegen.Generator)(nil)

// Environment captures external dependencies used by the pipeline.
type Environment struct {
	Logger logging.Logger
	Writer Writer
	// Generator replaces the default codegen.Generator when set.
	Generator Generator
	// Now stamps generated files; defaults to time.Now.
	Now   func() time.Time
	Hooks Hooks
}

// Writer writes generated files to persistent storage.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// Pipeline runs catalog exports.
type Pipeline struct {
	Env Environment
}

// Summary describes the outcome of a run.
type Summary struct {
	RunID        string
	Path         string
	Target       render.Target
	Content      []byte
	Stats        catalog.Stats
	Declarations int
	// Written is false for dry runs and when the file already had Content
	// apart from the generate time in its banner.
	Written  bool
	Warnings []string
}

// RunOptions configures a pipeline execution. Non-empty fields override the
// config file.
type RunOptions struct {
	// ConfigPath names the TOML config; an empty path runs from flags alone.
	ConfigPath   string
	CatalogPath  string
	Out          string
	Target       string
	Tiger        bool
	DryRun       bool
	StrictConfig bool
	// SnapshotPath, when set, receives a copy of the loaded catalog.
	SnapshotPath string
}

// DefaultOut is the output path, relative to the config directory, used when
// neither the config nor the options name one. The extension follows the
// render target.
const DefaultOut = "src/md/full"

// ConfigError reports invalid configuration or an unreadable catalog.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// GenerateError wraps generation and rendering failures.
type GenerateError struct {
	Err error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generate: %v", e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// WriteError wraps failures encountered while writing generated files or
// snapshots.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewOSWriter returns a Writer that performs atomic writes on the local filesystem.
func NewOSWriter() Writer {
	return &osWriter{perm: 0o644}
}

type osWriter struct {
	perm fs.FileMode
}

func (w *osWriter) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("pipeline: empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-export-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
		_ = tmp.Close()
	}()
	if w.perm != 0 {
		if err := tmp.Chmod(w.perm); err != nil {
			return fmt.Errorf("chmod temp file: %w", err)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// Run executes one export according to opts.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}

	logger := p.Env.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With("run", summary.RunID)

	plan, warnings, err := resolvePlan(opts)
	summary.Warnings = warnings
	for _, w := range warnings {
		logger.Warn("config warning", "message", w)
	}
	if err != nil {
		return summary, err
	}
	summary.Path = plan.Out
	summary.Target = plan.Target

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	renderer, err := render.New(plan.Target, plan.Render)
	if err != nil {
		return summary, &ConfigError{Path: opts.ConfigPath, Err: err}
	}

	logger.Debug("loading catalog", "source", plan.Catalog)
	cat, err := loadCatalog(ctx, plan.Catalog)
	if err != nil {
		return summary, &ConfigError{Path: plan.Catalog, Err: err}
	}
	summary.Stats = cat.Stats()
	logger.Debug("catalog loaded",
		"attributes", summary.Stats.Attributes,
		"metrics", summary.Stats.Metrics,
		"facts", summary.Stats.Facts,
		"date_data_sets", summary.Stats.DateDataSets,
		"insights", summary.Stats.Insights,
	)

	if opts.SnapshotPath != "" {
		if err := saveSnapshot(ctx, opts.SnapshotPath, cat); err != nil {
			return summary, &WriteError{Path: opts.SnapshotPath, Err: err}
		}
		logger.Info("snapshot saved", "location", opts.SnapshotPath)
	}

	hooks := p.Env.Hooks
	if hooks.BeforeGenerate != nil {
		if err := hooks.BeforeGenerate(ctx, cat); err != nil {
			return summary, err
		}
	}

	generator := p.Env.Generator
	if generator == nil {
		generator = codegen.New(codegen.Options{Tiger: plan.Tiger, Now: p.Env.Now})
	}
	file, err := generator.Generate(ctx, cat)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return summary, err
		}
		return summary, &GenerateError{Err: err}
	}
	content, err := renderer.Render(file)
	if err != nil {
		return summary, &GenerateError{Err: err}
	}
	summary.Content = content
	summary.Declarations = len(file.Decls)

	if hooks.AfterGenerate != nil {
		if err := hooks.AfterGenerate(ctx, file); err != nil {
			return summary, err
		}
	}

	logger.Info("generated catalog export",
		"path", summary.Path,
		"target", string(summary.Target),
		"declarations", summary.Declarations,
		"bytes", len(content),
	)

	if opts.DryRun {
		return summary, nil
	}

	if hooks.BeforeWrite != nil {
		if err := hooks.BeforeWrite(ctx, summary); err != nil {
			return summary, err
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	same, err := fileMatches(summary.Path, content)
	if err != nil {
		return summary, &WriteError{Path: summary.Path, Err: err}
	}
	if same {
		logger.Debug("output unchanged", "path", summary.Path)
	} else {
		writer := p.Env.Writer
		if writer == nil {
			writer = NewOSWriter()
		}
		if err := writer.WriteFile(summary.Path, content); err != nil {
			return summary, &WriteError{Path: summary.Path, Err: err}
		}
		summary.Written = true
	}

	if hooks.AfterWrite != nil {
		if err := hooks.AfterWrite(ctx, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// resolvePlan merges the config file, if any, with opts.
func resolvePlan(opts RunOptions) (config.JobPlan, []string, error) {
	var (
		plan     config.JobPlan
		warnings []string
		baseDir  string
	)

	if opts.ConfigPath != "" {
		absConfigPath, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			return plan, nil, &ConfigError{Path: opts.ConfigPath, Err: err}
		}
		res, err := config.Load(absConfigPath, config.LoadOptions{Strict: opts.StrictConfig})
		if err != nil {
			return plan, nil, &ConfigError{Path: opts.ConfigPath, Err: err}
		}
		plan, warnings = res.Plan, res.Warnings
		baseDir = filepath.Dir(absConfigPath)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return plan, nil, &ConfigError{Err: err}
		}
		baseDir = wd
		plan.Target = render.TargetTypeScript
	}

	if opts.CatalogPath != "" {
		plan.Catalog = opts.CatalogPath
	}
	if opts.Target != "" {
		target, err := config.ParseTarget(opts.Target)
		if err != nil {
			return plan, warnings, &ConfigError{Path: opts.ConfigPath, Err: err}
		}
		plan.Target = target
	}
	plan.Tiger = plan.Tiger || opts.Tiger

	switch {
	case opts.Out != "":
		plan.Out = filepath.Clean(opts.Out)
		if !filepath.IsAbs(plan.Out) {
			plan.Out = filepath.Join(baseDir, plan.Out)
		}
	case plan.Out == "":
		plan.Out = filepath.Join(baseDir, filepath.FromSlash(DefaultOut)+render.Extension(plan.Target))
	}

	if plan.Catalog == "" {
		return plan, warnings, &ConfigError{Path: opts.ConfigPath, Err: errors.New("no catalog given")}
	}
	return plan, warnings, nil
}

// loadCatalog reads a catalog from a JSON or YAML file or from a snapshot
// database.
func loadCatalog(ctx context.Context, location string) (*catalog.Catalog, error) {
	if !snapshot.IsLocation(location) {
		return catalog.LoadFile(location)
	}
	store, err := snapshot.OpenExisting(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return store.Load(ctx)
}

func saveSnapshot(ctx context.Context, location string, cat *catalog.Catalog) error {
	store, err := snapshot.Open(ctx, location)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, cat); err != nil {
		_ = store.Close()
		return err
	}
	return store.Close()
}

func fileMatches(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return render.EqualIgnoringBanner(existing, content), nil
}
