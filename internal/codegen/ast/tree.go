// Package ast models generated catalog files as a tree of declaration
// descriptors. The tree is independent of the target language; renderers in
// package render turn it into source text.
package ast

import "time"

// File is one generated output document.
type File struct {
	// GeneratedAt is stamped into the banner.
	GeneratedAt time.Time
	Imports     []Import
	Decls       []Decl
}

// Import lists helper symbols pulled from one module.
type Import struct {
	Module string
	Names  []string
}

// Section groups declarations in the fixed emission order.
type Section int

const (
	SectionAttributes Section = iota
	SectionMeasures
	SectionDateDataSets
	SectionInsights
)

func (s Section) String() string {
	switch s {
	case SectionAttributes:
		return "attributes"
	case SectionMeasures:
		return "measures"
	case SectionDateDataSets:
		return "date data sets"
	case SectionInsights:
		return "insights"
	default:
		return "unknown"
	}
}

// Type is the declared type of a constant. TypeNone leaves it to inference.
type Type int

const (
	TypeNone Type = iota
	TypeAttribute
	TypeMeasure
)

// Decl is an exported constant declaration.
type Decl struct {
	Section Section
	Name    string
	Type    Type
	Init    Expr
	Doc     []string
}

// Expr is an initializer expression.
type Expr interface {
	expr()
}

// AttributeRef constructs an attribute from a display form identifier.
type AttributeRef struct {
	DisplayForm string
}

// ObjectType qualifies the identifier in a measure reference.
type ObjectType string

const (
	ObjectMeasure ObjectType = "measure"
	ObjectFact    ObjectType = "fact"
)

// MeasureRef constructs a measure from a metric or an aggregated fact.
type MeasureRef struct {
	Identifier  string
	Object      ObjectType
	Aggregation string
}

// StringLit is a plain string value.
type StringLit struct {
	Value string
}

// Object is a literal grouping named properties.
type Object struct {
	Props []Prop
}

// Prop is one named property of an Object.
type Prop struct {
	Name  string
	Value Expr
	Doc   []string
}

func (AttributeRef) expr() {}
func (MeasureRef) expr()   {}
func (StringLit) expr()    {}
func (*Object) expr()      {}

// Find returns the declaration called name.
func (f *File) Find(name string) (Decl, bool) {
	for _, d := range f.Decls {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}

// Section returns the declarations of one section in emission order.
func (f *File) Section(s Section) []Decl {
	var out []Decl
	for _, d := range f.Decls {
		if d.Section == s {
			out = append(out, d)
		}
	}
	return out
}

// PropNames lists the property names of an object initializer.
func PropNames(e Expr) []string {
	obj, ok := e.(*Object)
	if !ok {
		return nil
	}
	names := make([]string, len(obj.Props))
	for i, p := range obj.Props {
		names[i] = p.Name
	}
	return names
}
