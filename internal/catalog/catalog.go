// Package catalog defines the analytics metadata consumed by the exporter.
package catalog

import (
	"errors"
	"fmt"
)

// ErrInconsistentCatalog reports a catalog whose shape cannot be fully described
// by generated declarations.
var ErrInconsistentCatalog = errors.New("catalog: inconsistent catalog")

// Catalog is an ordered snapshot of the metadata objects of one workspace.
type Catalog struct {
	Attributes   []Attribute   `json:"attributes" yaml:"attributes"`
	Metrics      []Metric      `json:"metrics" yaml:"metrics"`
	Facts        []Fact        `json:"facts" yaml:"facts"`
	DateDataSets []DateDataSet `json:"dateDataSets" yaml:"dateDataSets"`
	Insights     []Insight     `json:"insights" yaml:"insights"`
}

// Attribute groups one or more display forms under a common title.
type Attribute struct {
	Title        string        `json:"title" yaml:"title"`
	Identifier   string        `json:"identifier" yaml:"identifier"`
	DisplayForms []DisplayForm `json:"displayForms" yaml:"displayForms"`
}

// DisplayForm is an alternate representation of an attribute's values.
type DisplayForm struct {
	Title      string `json:"title" yaml:"title"`
	Identifier string `json:"identifier" yaml:"identifier"`
}

// Metric is a MAQL-defined measure.
type Metric struct {
	Title      string `json:"title" yaml:"title"`
	Identifier string `json:"identifier" yaml:"identifier"`
}

// Fact is a raw numeric column that can be aggregated.
type Fact struct {
	Title      string `json:"title" yaml:"title"`
	Identifier string `json:"identifier" yaml:"identifier"`
}

// DateDataSet is a backend-provided set of date attributes whose titles carry the
// data set name in trailing parentheses.
type DateDataSet struct {
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Identifier string      `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
}

// Insight is a saved visualization.
type Insight struct {
	Title      string `json:"title" yaml:"title"`
	Identifier string `json:"identifier" yaml:"identifier"`
}

// ValidationError describes the first entity that violates a catalog invariant.
type ValidationError struct {
	Kind       string
	Identifier string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("catalog: %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("catalog: %s %q: %s", e.Kind, e.Identifier, e.Reason)
}

// Unwrap makes every ValidationError match ErrInconsistentCatalog.
func (e *ValidationError) Unwrap() error {
	return ErrInconsistentCatalog
}

// ValidateAttribute checks the invariants of a single attribute.
func ValidateAttribute(a Attribute) error {
	if a.Identifier == "" {
		return &ValidationError{Kind: "attribute", Identifier: a.Title, Reason: "missing identifier"}
	}
	if len(a.DisplayForms) == 0 {
		return &ValidationError{Kind: "attribute", Identifier: a.Identifier, Reason: "has no display forms"}
	}
	for _, df := range a.DisplayForms {
		if df.Identifier == "" {
			return &ValidationError{Kind: "display form", Identifier: a.Identifier, Reason: fmt.Sprintf("display form %q is missing identifier", df.Title)}
		}
	}
	return nil
}

// Validate checks the whole catalog and returns the first violation found.
func (c *Catalog) Validate() error {
	if c == nil {
		return &ValidationError{Kind: "catalog", Reason: "nil catalog"}
	}
	for _, a := range c.Attributes {
		if err := ValidateAttribute(a); err != nil {
			return err
		}
	}
	for _, m := range c.Metrics {
		if m.Identifier == "" {
			return &ValidationError{Kind: "metric", Identifier: m.Title, Reason: "missing identifier"}
		}
	}
	for _, f := range c.Facts {
		if f.Identifier == "" {
			return &ValidationError{Kind: "fact", Identifier: f.Title, Reason: "missing identifier"}
		}
	}
	for _, dd := range c.DateDataSets {
		for _, a := range dd.Attributes {
			if err := ValidateAttribute(a); err != nil {
				return err
			}
		}
	}
	for _, in := range c.Insights {
		if in.Identifier == "" {
			return &ValidationError{Kind: "insight", Identifier: in.Title, Reason: "missing identifier"}
		}
	}
	return nil
}

// Stats summarizes the number of objects in a catalog.
type Stats struct {
	Attributes     int
	DisplayForms   int
	Metrics        int
	Facts          int
	DateDataSets   int
	DateAttributes int
	Insights       int
}

// Stats counts the objects in the catalog.
func (c *Catalog) Stats() Stats {
	s := Stats{
		Attributes:   len(c.Attributes),
		Metrics:      len(c.Metrics),
		Facts:        len(c.Facts),
		DateDataSets: len(c.DateDataSets),
		Insights:     len(c.Insights),
	}
	for _, a := range c.Attributes {
		s.DisplayForms += len(a.DisplayForms)
	}
	for _, dd := range c.DateDataSets {
		s.DateAttributes += len(dd.Attributes)
		for _, a := range dd.Attributes {
			s.DisplayForms += len(a.DisplayForms)
		}
	}
	return s
}
