// Package codegen turns a metadata catalog into a tree of named declarations.
package codegen

import (
	"context"
	"fmt"
	"time"

	"github.com/electwix/catalog-export/internal/catalog"
	"github.com/electwix/catalog-export/internal/codegen/ast"
	"github.com/electwix/catalog-export/internal/naming"
)

// SDKModule is the module the generated helpers are imported from.
const SDKModule = "@gooddata/sdk-model"

// InsightsName is the constant holding the insight map.
const InsightsName = "Insights"

// HelperSymbols are imported by every generated file.
var HelperSymbols = []string{"newAttribute", "newMeasure", "IAttribute", "IMeasure", "IMeasureDefinition", "idRef"}

// Options configures a Generator.
type Options struct {
	// Tiger selects the date naming convention of Tiger backends, whose date
	// titles are not qualified with the data set name.
	Tiger bool
	// Now stamps the file banner; defaults to time.Now.
	Now func() time.Time
}

// Generator builds declaration trees from catalogs. It keeps no state between
// calls, so one Generator may be reused for many catalogs.
type Generator struct {
	opts Options
}

// New creates a Generator.
func New(opts Options) *Generator {
	return &Generator{opts: opts}
}

// UnsupportedEntityError reports an Entity variant unknown to the dispatcher.
type UnsupportedEntityError struct {
	Entity Entity
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("codegen: unsupported entity %T", e.Entity)
}

// Generate builds the declaration tree for cat. Either the whole tree is built
// or an error is returned; there is no partial output.
func (g *Generator) Generate(ctx context.Context, cat *catalog.Catalog) (*ast.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	now := time.Now
	if g.opts.Now != nil {
		now = g.opts.Now
	}

	reservedNames := append([]string{InsightsName}, HelperSymbols...)
	r := &run{
		global: naming.NewScope(reservedNames...),
		dates:  naming.SelectDateStrategy(g.opts.Tiger),
	}

	for _, e := range Entities(cat) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.generateEntity(e); err != nil {
			return nil, fmt.Errorf("generate %s: %w", describe(e), err)
		}
	}

	decls := append(r.decls, ast.Decl{
		Section: ast.SectionInsights,
		Name:    InsightsName,
		Init:    &ast.Object{Props: r.insights},
	})

	return &ast.File{
		GeneratedAt: now().UTC(),
		Imports: []ast.Import{{
			Module: SDKModule,
			Names:  append([]string(nil), HelperSymbols...),
		}},
		Decls: decls,
	}, nil
}

func describe(e Entity) string {
	switch e := e.(type) {
	case AttributeEntity:
		return fmt.Sprintf("attribute %q", e.Attribute.Identifier)
	case MetricEntity:
		return fmt.Sprintf("metric %q", e.Metric.Identifier)
	case FactEntity:
		return fmt.Sprintf("fact %q", e.Fact.Identifier)
	case DateDataSetEntity:
		return fmt.Sprintf("date data set %q", e.DataSet.Identifier)
	case InsightEntity:
		return fmt.Sprintf("insight %q", e.Insight.Identifier)
	default:
		return fmt.Sprintf("%T", e)
	}
}
