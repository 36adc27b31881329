// Package render serializes declaration trees into source text.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/electwix/catalog-export/internal/codegen/ast"
)

// Target identifies an output language.
type Target string

const (
	// TargetTypeScript renders an ES module for the GoodData.UI SDK.
	TargetTypeScript Target = "typescript"
	// TargetGo renders a Go package against a configured model package.
	TargetGo Target = "go"
)

// Renderer turns a declaration tree into source bytes.
type Renderer interface {
	Render(file *ast.File) ([]byte, error)
}

// Options configures renderers.
type Options struct {
	// GoPackage is the package clause of Go output.
	GoPackage string
	// GoModelImport is the import path providing the model helpers in Go output.
	GoModelImport string
}

// New returns the renderer for target.
func New(target Target, opts Options) (Renderer, error) {
	switch target {
	case TargetTypeScript, "":
		return TypeScript{}, nil
	case TargetGo:
		if opts.GoPackage == "" {
			return nil, fmt.Errorf("render: go target requires a package name")
		}
		if opts.GoModelImport == "" {
			return nil, fmt.Errorf("render: go target requires a model import path")
		}
		return Go{Package: opts.GoPackage, ModelImport: opts.GoModelImport}, nil
	default:
		return nil, fmt.Errorf("render: unsupported target %q", target)
	}
}

// Extension returns the conventional file extension for target.
func Extension(target Target) string {
	if target == TargetGo {
		return ".go"
	}
	return ".ts"
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const bannerText = "THIS FILE WAS AUTO-GENERATED USING CATALOG EXPORTER; YOU SHOULD NOT EDIT THIS FILE; GENERATE TIME: "

// Banner is the generated-file warning shared by all targets.
func Banner(t time.Time) string {
	return bannerText + t.UTC().Format(timestampLayout) + ";"
}

// EqualIgnoringBanner reports whether two rendered files differ at most in
// their banner line, which carries the generate time.
func EqualIgnoringBanner(a, b []byte) bool {
	return bytes.Equal(stripBanner(a), stripBanner(b))
}

func stripBanner(content []byte) []byte {
	i := bytes.Index(content, []byte(bannerText))
	if i < 0 {
		return content
	}
	start := bytes.LastIndexByte(content[:i], '\n') + 1
	end := bytes.IndexByte(content[i:], '\n')
	if end < 0 {
		return content[:start]
	}
	out := make([]byte, 0, len(content))
	out = append(out, content[:start]...)
	return append(out, content[i+end+1:]...)
}

// docLines flattens doc text so that every entry occupies one comment line and
// cannot terminate a block comment early.
func docLines(doc []string) []string {
	out := make([]string, 0, len(doc))
	for _, line := range doc {
		line = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "*/", "*\\/").Replace(line)
		out = append(out, strings.TrimRight(line, " "))
	}
	return out
}
