package render

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/electwix/catalog-export/internal/codegen/ast"
	"github.com/electwix/catalog-export/internal/naming"
)

const goModelAlias = "model"

// Go renders declaration trees as a Go package. Constants become package-level
// variables initialized through the model package at ModelImport.
type Go struct {
	Package     string
	ModelImport string
}

// Render implements Renderer. The source is run through goimports, which both
// formats it and drops the model import when nothing references it.
func (g Go) Render(file *ast.File) ([]byte, error) {
	if file == nil {
		return nil, fmt.Errorf("render go: nil file")
	}
	decls, err := exportDecls(file.Decls)
	if err != nil {
		return nil, fmt.Errorf("render go: %w", err)
	}

	var b strings.Builder
	b.WriteString("// Code generated by catalog-export. DO NOT EDIT.\n")
	b.WriteString("// " + Banner(file.GeneratedAt) + "\n\n")
	b.WriteString("package " + g.Package + "\n\n")
	fmt.Fprintf(&b, "import %s %s\n", goModelAlias, strconv.Quote(g.ModelImport))

	for _, decl := range decls {
		b.WriteByte('\n')
		writeGoDoc(&b, decl.Doc)
		b.WriteString("var " + decl.Name)
		if typ := goType(decl.Type); typ != "" {
			b.WriteString(" " + typ)
		}
		b.WriteString(" = ")
		if err := writeGoExpr(&b, decl.Init); err != nil {
			return nil, fmt.Errorf("render go %s: %w", decl.Name, err)
		}
		b.WriteByte('\n')
	}

	formatted, err := imports.Process("", []byte(b.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("goimports: %w", err)
	}
	return formatted, nil
}

// exportDecls returns decls with every variable and struct field name
// exported. Renamed names are claimed against the names of their level so
// they cannot collide with a sibling.
func exportDecls(decls []ast.Decl) ([]ast.Decl, error) {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	exported, err := exportNames(names)
	if err != nil {
		return nil, err
	}
	out := make([]ast.Decl, len(decls))
	for i, d := range decls {
		d.Name = exported[i]
		if d.Init, err = exportExpr(d.Init); err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func exportExpr(e ast.Expr) (ast.Expr, error) {
	obj, ok := e.(*ast.Object)
	if !ok {
		return e, nil
	}
	names := make([]string, len(obj.Props))
	for i, p := range obj.Props {
		names[i] = p.Name
	}
	exported, err := exportNames(names)
	if err != nil {
		return nil, err
	}
	props := make([]ast.Prop, len(obj.Props))
	for i, p := range obj.Props {
		p.Name = exported[i]
		if p.Value, err = exportExpr(p.Value); err != nil {
			return nil, err
		}
		props[i] = p
	}
	return &ast.Object{Props: props}, nil
}

func exportNames(names []string) ([]string, error) {
	scope := naming.NewScope(names...)
	out := make([]string, len(names))
	for i, name := range names {
		if token.IsExported(name) {
			out[i] = name
			continue
		}
		renamed, err := scope.Claim(naming.ExportedName(name))
		if err != nil {
			return nil, err
		}
		out[i] = renamed
	}
	return out, nil
}

func goType(t ast.Type) string {
	switch t {
	case ast.TypeAttribute:
		return goModelAlias + ".Attribute"
	case ast.TypeMeasure:
		return goModelAlias + ".Measure"
	default:
		return ""
	}
}

func writeGoDoc(b *strings.Builder, doc []string) {
	for _, line := range docLines(doc) {
		b.WriteString("// " + line + "\n")
	}
}

// goExprType returns the static type of an initializer.
func goExprType(e ast.Expr) (string, error) {
	switch e := e.(type) {
	case ast.AttributeRef:
		return goType(ast.TypeAttribute), nil
	case ast.MeasureRef:
		return goType(ast.TypeMeasure), nil
	case ast.StringLit:
		return "string", nil
	case *ast.Object:
		var b strings.Builder
		b.WriteString("struct {\n")
		for _, p := range e.Props {
			typ, err := goExprType(p.Value)
			if err != nil {
				return "", err
			}
			b.WriteString(p.Name + " " + typ + "\n")
		}
		b.WriteString("}")
		return b.String(), nil
	default:
		return "", fmt.Errorf("unsupported expression %T", e)
	}
}

func writeGoExpr(b *strings.Builder, e ast.Expr) error {
	switch e := e.(type) {
	case ast.AttributeRef:
		fmt.Fprintf(b, "%s.NewAttribute(%s)", goModelAlias, strconv.Quote(e.DisplayForm))
	case ast.MeasureRef:
		ref := fmt.Sprintf("%s.IdRef(%s, %s)", goModelAlias, strconv.Quote(e.Identifier), strconv.Quote(string(e.Object)))
		if e.Aggregation == "" {
			fmt.Fprintf(b, "%s.NewMeasure(%s)", goModelAlias, ref)
			break
		}
		fmt.Fprintf(b, "%s.NewMeasure(%s, %s.Aggregation(%s))", goModelAlias, ref, goModelAlias, strconv.Quote(e.Aggregation))
	case ast.StringLit:
		b.WriteString(strconv.Quote(e.Value))
	case *ast.Object:
		typ, err := goExprType(e)
		if err != nil {
			return err
		}
		b.WriteString(typ + "{")
		if len(e.Props) > 0 {
			b.WriteByte('\n')
		}
		for _, p := range e.Props {
			writeGoDoc(b, p.Doc)
			b.WriteString(p.Name + ": ")
			if err := writeGoExpr(b, p.Value); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		b.WriteString("}")
	default:
		return fmt.Errorf("unsupported expression %T", e)
	}
	return nil
}
