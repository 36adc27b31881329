package render

import (
	"fmt"
	"strings"

	"github.com/electwix/catalog-export/internal/codegen/ast"
)

const tsIndent = "    "

// TypeScript renders declaration trees as an ES module.
type TypeScript struct{}

// Render implements Renderer.
func (TypeScript) Render(file *ast.File) ([]byte, error) {
	if file == nil {
		return nil, fmt.Errorf("render typescript: nil file")
	}
	var b strings.Builder
	b.WriteString("/* eslint-disable */\n")
	b.WriteString("/* " + Banner(file.GeneratedAt) + " */\n")

	for _, imp := range file.Imports {
		fmt.Fprintf(&b, "import { %s } from %s;\n", strings.Join(imp.Names, ", "), tsString(imp.Module))
	}

	for _, decl := range file.Decls {
		b.WriteByte('\n')
		writeTSDoc(&b, "", decl.Doc)
		b.WriteString("export const " + decl.Name)
		if typ := tsType(decl.Type); typ != "" {
			b.WriteString(": " + typ)
		}
		b.WriteString(" = ")
		if err := writeTSExpr(&b, decl.Init, ""); err != nil {
			return nil, fmt.Errorf("render typescript %s: %w", decl.Name, err)
		}
		b.WriteString(";\n")
	}
	return []byte(b.String()), nil
}

func tsType(t ast.Type) string {
	switch t {
	case ast.TypeAttribute:
		return "IAttribute"
	case ast.TypeMeasure:
		return "IMeasure<IMeasureDefinition>"
	default:
		return ""
	}
}

func writeTSDoc(b *strings.Builder, indent string, doc []string) {
	if len(doc) == 0 {
		return
	}
	b.WriteString(indent + "/**\n")
	for _, line := range docLines(doc) {
		b.WriteString(indent + " * " + line + "\n")
	}
	b.WriteString(indent + " */\n")
}

func writeTSExpr(b *strings.Builder, e ast.Expr, indent string) error {
	switch e := e.(type) {
	case ast.AttributeRef:
		b.WriteString("newAttribute(" + tsString(e.DisplayForm) + ")")
	case ast.MeasureRef:
		ref := "idRef(" + tsString(e.Identifier) + ", " + tsString(string(e.Object)) + ")"
		if e.Aggregation == "" {
			b.WriteString("newMeasure(" + ref + ")")
			break
		}
		b.WriteString("newMeasure(" + ref + ", (m) => m.aggregation(" + tsString(e.Aggregation) + "))")
	case ast.StringLit:
		b.WriteString(tsString(e.Value))
	case *ast.Object:
		if len(e.Props) == 0 {
			b.WriteString("{}")
			break
		}
		inner := indent + tsIndent
		b.WriteString("{\n")
		for _, p := range e.Props {
			writeTSDoc(b, inner, p.Doc)
			b.WriteString(inner + p.Name + ": ")
			if err := writeTSExpr(b, p.Value, inner); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		b.WriteString(indent + "}")
	default:
		return fmt.Errorf("unsupported expression %T", e)
	}
	return nil
}

// tsString quotes s as a single-quoted TypeScript string literal.
func tsString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
