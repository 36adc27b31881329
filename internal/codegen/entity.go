package codegen

import (
	"strings"

	"github.com/electwix/catalog-export/internal/catalog"
	"github.com/electwix/catalog-export/internal/codegen/ast"
	"github.com/electwix/catalog-export/internal/naming"
)

// Entity is one metadata object queued for generation. The set of variants is
// closed: AttributeEntity, MetricEntity, FactEntity, DateDataSetEntity and
// InsightEntity.
type Entity interface {
	entity()
}

// AttributeEntity is a workspace attribute.
type AttributeEntity struct{ Attribute catalog.Attribute }

// MetricEntity is a MAQL metric.
type MetricEntity struct{ Metric catalog.Metric }

// FactEntity is a fact expanded into all aggregations.
type FactEntity struct{ Fact catalog.Fact }

// DateDataSetEntity is a date dimension whose attributes use date naming.
type DateDataSetEntity struct{ DataSet catalog.DateDataSet }

// InsightEntity is an entry of the insight map.
type InsightEntity struct{ Insight catalog.Insight }

func (AttributeEntity) entity()   {}
func (MetricEntity) entity()      {}
func (FactEntity) entity()        {}
func (DateDataSetEntity) entity() {}
func (InsightEntity) entity()     {}

// Entities flattens a catalog into the order declarations are emitted in.
func Entities(cat *catalog.Catalog) []Entity {
	out := make([]Entity, 0, len(cat.Attributes)+len(cat.Metrics)+len(cat.Facts)+len(cat.DateDataSets)+len(cat.Insights))
	for _, a := range cat.Attributes {
		out = append(out, AttributeEntity{Attribute: a})
	}
	for _, m := range cat.Metrics {
		out = append(out, MetricEntity{Metric: m})
	}
	for _, f := range cat.Facts {
		out = append(out, FactEntity{Fact: f})
	}
	for _, dd := range cat.DateDataSets {
		out = append(out, DateDataSetEntity{DataSet: dd})
	}
	for _, in := range cat.Insights {
		out = append(out, InsightEntity{Insight: in})
	}
	return out
}

// FactAggregations lists the aggregations generated for every fact, in order.
var FactAggregations = []string{"sum", "count", "avg", "min", "max", "median", "runsum"}

// DefaultProperty names the display form whose name matches its attribute.
const DefaultProperty = "Default"

// run holds the mutable state of a single generation.
type run struct {
	global   *naming.Scope
	dates    naming.Strategy
	decls    []ast.Decl
	insights []ast.Prop
}

func (r *run) generateEntity(e Entity) error {
	switch e := e.(type) {
	case AttributeEntity:
		decl, err := r.generateAttribute(e.Attribute, naming.DefaultStrategy)
		if err != nil {
			return err
		}
		decl.Section = ast.SectionAttributes
		r.decls = append(r.decls, decl)
	case MetricEntity:
		decl, err := r.generateMetric(e.Metric)
		if err != nil {
			return err
		}
		r.decls = append(r.decls, decl)
	case FactEntity:
		decl, err := r.generateFact(e.Fact)
		if err != nil {
			return err
		}
		r.decls = append(r.decls, decl)
	case DateDataSetEntity:
		decls, err := r.generateDateDataSet(e.DataSet)
		if err != nil {
			return err
		}
		r.decls = append(r.decls, decls...)
	case InsightEntity:
		prop, err := r.generateInsight(e.Insight)
		if err != nil {
			return err
		}
		r.insights = append(r.insights, prop)
	default:
		return &UnsupportedEntityError{Entity: e}
	}
	return nil
}

func (r *run) generateAttribute(a catalog.Attribute, strategy naming.Strategy) (ast.Decl, error) {
	if err := catalog.ValidateAttribute(a); err != nil {
		return ast.Decl{}, err
	}
	name, err := strategy.Attribute(a.Title, r.global)
	if err != nil {
		return ast.Decl{}, err
	}

	if len(a.DisplayForms) == 1 {
		df := a.DisplayForms[0]
		return ast.Decl{
			Name: name,
			Type: ast.TypeAttribute,
			Init: ast.AttributeRef{DisplayForm: df.Identifier},
			Doc: []string{
				"Attribute Title: " + a.Title,
				"Display Form ID: " + df.Identifier,
			},
		}, nil
	}

	local := naming.NewScope()
	props := naming.NewScope()
	obj := &ast.Object{Props: make([]ast.Prop, 0, len(a.DisplayForms))}
	for _, df := range a.DisplayForms {
		dfName, err := strategy.DisplayForm(df.Title, local)
		if err != nil {
			return ast.Decl{}, err
		}
		prop, err := displayFormProperty(name, dfName, props)
		if err != nil {
			return ast.Decl{}, err
		}
		obj.Props = append(obj.Props, ast.Prop{
			Name:  prop,
			Value: ast.AttributeRef{DisplayForm: df.Identifier},
			Doc: []string{
				"Display Form Title: " + df.Title,
				"Display Form ID: " + df.Identifier,
			},
		})
	}
	return ast.Decl{
		Name: name,
		Init: obj,
		Doc: []string{
			"Attribute Title: " + a.Title,
			"Attribute ID: " + a.Identifier,
		},
	}, nil
}

// displayFormProperty turns a display form name into a property of its
// attribute object. The form named like the attribute becomes Default, and a
// leading attribute name is stripped (LocationName -> Name) when the rest is
// still a readable, unused identifier.
func displayFormProperty(attrName, dfName string, props *naming.Scope) (string, error) {
	candidate := dfName
	if dfName == attrName {
		candidate = DefaultProperty
	} else if rest, ok := strings.CutPrefix(dfName, attrName); ok && startsWithLetter(rest) && !props.Taken(rest) {
		candidate = rest
	}
	if props.Taken(candidate) && !props.Taken(dfName) {
		candidate = dfName
	}
	return props.Claim(candidate)
}

func startsWithLetter(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func (r *run) generateMetric(m catalog.Metric) (ast.Decl, error) {
	name, err := r.global.Allocate(m.Title)
	if err != nil {
		return ast.Decl{}, err
	}
	return ast.Decl{
		Section: ast.SectionMeasures,
		Name:    name,
		Type:    ast.TypeMeasure,
		Init:    ast.MeasureRef{Identifier: m.Identifier, Object: ast.ObjectMeasure},
		Doc: []string{
			"Metric Title: " + m.Title,
			"Metric ID: " + m.Identifier,
			"Metric Type: MAQL Metric",
		},
	}, nil
}

func (r *run) generateFact(f catalog.Fact) (ast.Decl, error) {
	name, err := r.global.Allocate(f.Title)
	if err != nil {
		return ast.Decl{}, err
	}
	obj := &ast.Object{Props: make([]ast.Prop, 0, len(FactAggregations))}
	for _, agg := range FactAggregations {
		obj.Props = append(obj.Props, ast.Prop{
			Name:  strings.ToUpper(agg[:1]) + agg[1:],
			Value: ast.MeasureRef{Identifier: f.Identifier, Object: ast.ObjectFact, Aggregation: agg},
			Doc: []string{
				"Fact Title: " + f.Title,
				"Fact ID: " + f.Identifier,
				"Fact Aggregation: " + agg,
			},
		})
	}
	return ast.Decl{
		Section: ast.SectionMeasures,
		Name:    name,
		Init:    obj,
		Doc: []string{
			"Fact Title: " + f.Title,
			"Fact ID: " + f.Identifier,
		},
	}, nil
}

func (r *run) generateDateDataSet(dd catalog.DateDataSet) ([]ast.Decl, error) {
	decls := make([]ast.Decl, 0, len(dd.Attributes))
	for _, a := range dd.Attributes {
		decl, err := r.generateAttribute(a, r.dates)
		if err != nil {
			return nil, err
		}
		decl.Section = ast.SectionDateDataSets
		decls = append(decls, decl)
	}
	return decls, nil
}

func (r *run) generateInsight(in catalog.Insight) (ast.Prop, error) {
	name, err := r.global.Allocate(in.Title)
	if err != nil {
		return ast.Prop{}, err
	}
	return ast.Prop{
		Name:  name,
		Value: ast.StringLit{Value: in.Identifier},
		Doc: []string{
			"Insight Title: " + in.Title,
			"Insight ID: " + in.Identifier,
		},
	}, nil
}
