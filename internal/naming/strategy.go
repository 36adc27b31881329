package naming

import "strings"

// NameFunc allocates an identifier for title inside scope.
type NameFunc func(title string, scope *Scope) (string, error)

// Strategy names an attribute and its display forms.
type Strategy struct {
	Attribute   NameFunc
	DisplayForm NameFunc
}

// DefaultStrategy allocates names straight from the titles.
var DefaultStrategy = Strategy{
	Attribute:   allocate,
	DisplayForm: allocate,
}

// DateDataSetStrategy handles date data set titles, which follow
// "<label> (<data set>)" for attributes and "<label> (<example>) (<data set>)"
// for display forms.
var DateDataSetStrategy = Strategy{
	Attribute: func(title string, scope *Scope) (string, error) {
		return scope.Allocate(SwapDataSetSuffix(title))
	},
	DisplayForm: func(title string, scope *Scope) (string, error) {
		return scope.Allocate(StripDisplayFormMeta(title))
	},
}

// SelectDateStrategy picks the naming for date data set attributes. Tiger
// backends do not qualify date titles with the data set name, so they use the
// default strategy.
func SelectDateStrategy(tiger bool) Strategy {
	if tiger {
		return DefaultStrategy
	}
	return DateDataSetStrategy
}

func allocate(title string, scope *Scope) (string, error) {
	return scope.Allocate(title)
}

// SwapDataSetSuffix moves the trailing parenthesized data set name to the front,
// so "Created (Date)" becomes "(Date) Created". Attributes of one data set then
// share a name prefix. Titles without a parenthesis are returned unchanged.
func SwapDataSetSuffix(title string) string {
	i := strings.LastIndexByte(title, '(')
	if i < 0 {
		return title
	}
	return title[i:] + " " + title[:i]
}

// StripDisplayFormMeta keeps the part of a display form title before the first
// parenthesis, dropping the example format and data set name.
func StripDisplayFormMeta(title string) string {
	i := strings.IndexByte(title, '(')
	if i < 0 {
		return title
	}
	return title[:i]
}
