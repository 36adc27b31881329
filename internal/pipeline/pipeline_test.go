package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/electwix/catalog-export/internal/catalog"
	"github.com/electwix/catalog-export/internal/codegen/ast"
	"github.com/electwix/catalog-export/internal/logging"
)

func fixedNow() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

const fixtureCatalog = `{
  "attributes": [
    {
      "title": "Location",
      "identifier": "attr.location",
      "displayForms": [
        {"title": "Location", "identifier": "label.location"},
        {"title": "Location Name", "identifier": "label.location.name"}
      ]
    }
  ],
  "metrics": [{"title": "Revenue", "identifier": "m.revenue"}],
  "facts": [{"title": "Amount", "identifier": "fact.amount"}],
  "dateDataSets": [
    {
      "title": "Date",
      "identifier": "dt.date",
      "attributes": [
        {
          "title": "Created (Date)",
          "identifier": "date.created",
          "displayForms": [{"title": "Created (Year) (Date)", "identifier": "date.created.year"}]
        }
      ]
    }
  ],
  "insights": [{"title": "Sales Overview", "identifier": "insight.1"}]
}`

const fixtureConfig = `catalog = "catalog.json"
out = "src/md/full.ts"

[go]
package = "md"
model_import = "example.com/sdk/model"
`

func writeFixture(tb testing.TB, dir string) string {
	tb.Helper()
	if err := os.WriteFile(filepath.Join(dir, "catalog.json"), []byte(fixtureCatalog), 0o600); err != nil {
		tb.Fatalf("write catalog: %v", err)
	}
	configPath := filepath.Join(dir, "catalog-export.toml")
	if err := os.WriteFile(configPath, []byte(fixtureConfig), 0o600); err != nil {
		tb.Fatalf("write config: %v", err)
	}
	return configPath
}

func TestPipelineDryRun(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir)
	writer := &MemoryWriter{}

	p := Pipeline{Env: Environment{Writer: writer, Now: fixedNow}}
	summary, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath, DryRun: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if writer.Writes() != 0 {
		t.Fatalf("writer invoked %d times during dry-run, want 0", writer.Writes())
	}
	if want := filepath.Join(dir, "src", "md", "full.ts"); summary.Path != want {
		t.Fatalf("Path = %q, want %q", summary.Path, want)
	}
	if summary.Written {
		t.Fatal("dry run reported a write")
	}
	if _, err := uuid.Parse(summary.RunID); err != nil {
		t.Fatalf("RunID %q is not a UUID: %v", summary.RunID, err)
	}

	content := string(summary.Content)
	for _, want := range []string{
		"export const Location = {",
		"    Default: newAttribute('label.location'),",
		"    Name: newAttribute('label.location.name'),",
		"export const Revenue: IMeasure<IMeasureDefinition> = newMeasure(idRef('m.revenue', 'measure'));",
		"export const DateCreated: IAttribute = newAttribute('date.created.year');",
		"    SalesOverview: 'insight.1',",
		"GENERATE TIME: 2024-03-01T12:00:00.000Z;",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q", want)
		}
	}
	if summary.Stats.Attributes != 1 || summary.Stats.DateAttributes != 1 {
		t.Errorf("Stats = %+v", summary.Stats)
	}
	// Location, Revenue, Amount, DateCreated, Insights.
	if summary.Declarations != 5 {
		t.Errorf("Declarations = %d, want 5", summary.Declarations)
	}
}

func TestPipelineWritesAndSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir)

	p := Pipeline{Env: Environment{Now: fixedNow}}
	first, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if !first.Written {
		t.Fatal("first run did not write")
	}
	onDisk, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(onDisk, first.Content) {
		t.Fatal("file content differs from summary content")
	}

	second, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Written {
		t.Fatal("unchanged output was rewritten")
	}
	if second.RunID == first.RunID {
		t.Fatal("runs share a run id")
	}

	later := Pipeline{Env: Environment{Now: func() time.Time { return fixedNow().Add(time.Hour) }}}
	third, err := later.Run(context.Background(), RunOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("third Run() error = %v", err)
	}
	if third.Written {
		t.Fatal("output rewritten when only the generate time changed")
	}
	if bytes.Equal(third.Content, first.Content) {
		t.Fatal("banner did not pick up the new clock")
	}
}

func TestPipelineOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir)

	p := Pipeline{Env: Environment{Now: fixedNow}}
	summary, err := p.Run(context.Background(), RunOptions{
		ConfigPath: configPath,
		Target:     "go",
		Out:        "md/catalog.go",
		Tiger:      true,
		DryRun:     true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := filepath.Join(dir, "md", "catalog.go"); summary.Path != want {
		t.Fatalf("Path = %q, want %q", summary.Path, want)
	}
	content := string(summary.Content)
	if !strings.Contains(content, "package md") {
		t.Errorf("go output missing package clause:\n%s", content)
	}
	if !strings.Contains(content, `var CreatedDate model.Attribute = model.NewAttribute("date.created.year")`) {
		t.Errorf("tiger naming not applied:\n%s", content)
	}
}

func TestPipelineWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	p := Pipeline{Env: Environment{Now: fixedNow}}
	summary, err := p.Run(context.Background(), RunOptions{
		CatalogPath: filepath.Join(dir, "catalog.json"),
		Out:         filepath.Join(dir, "out.ts"),
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Path != filepath.Join(dir, "out.ts") {
		t.Fatalf("Path = %q", summary.Path)
	}

	_, err = p.Run(context.Background(), RunOptions{DryRun: true})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Run() without catalog error = %v, want ConfigError", err)
	}
}

func TestPipelineSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir)
	snapshotPath := filepath.Join(dir, "catalog.db")

	p := Pipeline{Env: Environment{Now: fixedNow}}
	fromFile, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath, DryRun: true, SnapshotPath: snapshotPath})
	if err != nil {
		t.Fatalf("Run() with snapshot error = %v", err)
	}

	fromSnapshot, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath, CatalogPath: snapshotPath, DryRun: true})
	if err != nil {
		t.Fatalf("Run() from snapshot error = %v", err)
	}
	if !bytes.Equal(fromFile.Content, fromSnapshot.Content) {
		t.Fatalf("snapshot output differs:\n%s\n---\n%s", fromFile.Content, fromSnapshot.Content)
	}
}

func TestPipelineMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir)
	snapshotPath := filepath.Join(dir, "typo.db")
	writer := &MemoryWriter{}

	p := Pipeline{Env: Environment{Writer: writer, Now: fixedNow}}
	summary, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath, CatalogPath: snapshotPath})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Run() error = %v, want ConfigError wrapping fs.ErrNotExist", err)
	}
	if summary.Written || writer.Writes() != 0 {
		t.Fatalf("output written for a missing snapshot (writes = %d)", writer.Writes())
	}
	if _, err := os.Stat(snapshotPath); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("snapshot %s was created (stat err = %v)", snapshotPath, err)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) WriteFile(string, []byte) error { return w.err }

type stubGenerator struct{ err error }

func (g stubGenerator) Generate(context.Context, *catalog.Catalog) (*ast.File, error) {
	return nil, g.err
}

func TestPipelineErrors(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir)
	errDisk := errors.New("disk full")

	tests := []struct {
		name  string
		env   Environment
		opts  RunOptions
		check func(t *testing.T, err error)
	}{
		{
			name: "missing config",
			opts: RunOptions{ConfigPath: filepath.Join(dir, "nope.toml")},
			check: func(t *testing.T, err error) {
				var target *ConfigError
				if !errors.As(err, &target) {
					t.Fatalf("error = %v, want ConfigError", err)
				}
			},
		},
		{
			name: "missing catalog",
			opts: RunOptions{ConfigPath: configPath, CatalogPath: filepath.Join(dir, "missing.json")},
			check: func(t *testing.T, err error) {
				var target *ConfigError
				if !errors.As(err, &target) {
					t.Fatalf("error = %v, want ConfigError", err)
				}
			},
		},
		{
			name: "bad target",
			opts: RunOptions{ConfigPath: configPath, Target: "rust"},
			check: func(t *testing.T, err error) {
				var target *ConfigError
				if !errors.As(err, &target) {
					t.Fatalf("error = %v, want ConfigError", err)
				}
			},
		},
		{
			name: "generation failure",
			env:  Environment{Generator: stubGenerator{err: catalog.ErrInconsistentCatalog}},
			opts: RunOptions{ConfigPath: configPath},
			check: func(t *testing.T, err error) {
				var target *GenerateError
				if !errors.As(err, &target) {
					t.Fatalf("error = %v, want GenerateError", err)
				}
				if !errors.Is(err, catalog.ErrInconsistentCatalog) {
					t.Fatalf("error = %v, want ErrInconsistentCatalog in chain", err)
				}
			},
		},
		{
			name: "write failure",
			env:  Environment{Writer: failingWriter{err: errDisk}},
			opts: RunOptions{ConfigPath: configPath, Out: "other.ts"},
			check: func(t *testing.T, err error) {
				var target *WriteError
				if !errors.As(err, &target) {
					t.Fatalf("error = %v, want WriteError", err)
				}
				if !errors.Is(err, errDisk) {
					t.Fatalf("error = %v, want disk error in chain", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Pipeline{Env: tt.env}
			_, err := p.Run(context.Background(), tt.opts)
			if err == nil {
				t.Fatal("Run() succeeded, want error")
			}
			tt.check(t, err)
		})
	}
}

func TestPipelineCanceled(t *testing.T) {
	configPath := writeFixture(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Pipeline{Env: Environment{Writer: &MemoryWriter{}}}
	_, err := p.Run(ctx, RunOptions{ConfigPath: configPath})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestPipelineLogsRunID(t *testing.T) {
	configPath := writeFixture(t, t.TempDir())
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(logging.New(logging.Options{Writer: &buf, Verbose: true}))

	p := Pipeline{Env: Environment{Logger: logger, Now: fixedNow}}
	summary, err := p.Run(context.Background(), RunOptions{ConfigPath: configPath, DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "run="+summary.RunID) {
		t.Fatalf("log output missing run id %s:\n%s", summary.RunID, out)
	}
	if !strings.Contains(out, "generated catalog export") {
		t.Fatalf("log output missing summary line:\n%s", out)
	}
}
