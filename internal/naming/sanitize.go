// Package naming derives readable, collision-free identifiers from metadata titles.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Placeholder names a title that has no usable characters.
const Placeholder = "Unnamed"

const (
	reservedSuffix = "_"
	digitPrefix    = "_"
)

// reserved holds TypeScript keywords plus globals a module-level constant must not shadow.
var reserved = map[string]struct{}{
	"break": {}, "case": {}, "catch": {}, "class": {}, "const": {}, "continue": {},
	"debugger": {}, "default": {}, "delete": {}, "do": {}, "else": {}, "enum": {},
	"export": {}, "extends": {}, "false": {}, "finally": {}, "for": {}, "function": {},
	"if": {}, "import": {}, "in": {}, "instanceof": {}, "new": {}, "null": {},
	"return": {}, "super": {}, "switch": {}, "this": {}, "throw": {}, "true": {},
	"try": {}, "typeof": {}, "var": {}, "void": {}, "while": {}, "with": {},
	"as": {}, "implements": {}, "interface": {}, "let": {}, "package": {}, "private": {},
	"protected": {}, "public": {}, "static": {}, "yield": {}, "await": {}, "type": {},
	"undefined": {},
	"Array": {}, "Boolean": {}, "Date": {}, "Error": {}, "Function": {}, "Infinity": {},
	"Intl": {}, "Map": {}, "Math": {}, "NaN": {}, "Number": {}, "Object": {},
	"Promise": {}, "Proxy": {}, "Reflect": {}, "RegExp": {}, "Set": {}, "String": {},
	"Symbol": {}, "WeakMap": {}, "WeakSet": {},
}

// IsReserved reports whether name cannot be used as a generated constant.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// IsIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Sanitize converts a free-text title into a PascalCase identifier fragment. The
// result is never empty, never starts with a digit and is never a reserved word.
func Sanitize(title string) string {
	segments := splitSegments(fold(title))
	var b strings.Builder
	for _, seg := range segments {
		lower := strings.ToLower(seg)
		r, size := utf8.DecodeRuneInString(lower)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(lower[size:])
	}
	ident := b.String()
	if ident == "" {
		return Placeholder
	}
	if ident[0] >= '0' && ident[0] <= '9' {
		ident = digitPrefix + ident
	}
	if IsReserved(ident) {
		ident += reservedSuffix
	}
	return ident
}

// ExportedName returns ident in a form Go exports. Leading underscores are
// dropped, a lowercase first letter is upper-cased and anything else gets an X
// prefix, so "_2019Sales" becomes "X2019Sales".
func ExportedName(ident string) string {
	trimmed := strings.TrimLeft(ident, "_")
	r, size := utf8.DecodeRuneInString(trimmed)
	switch {
	case trimmed == "":
		return "X"
	case isUpper(r):
		return trimmed
	case isLower(r):
		return string(unicode.ToUpper(r)) + trimmed[size:]
	default:
		return "X" + trimmed
	}
}

// fold strips diacritics so that "Café" sanitizes to "Cafe" instead of "Caf".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// splitSegments breaks s into words on every non-alphanumeric rune and on
// camelCase boundaries (fooBar, FOOBar).
func splitSegments(s string) []string {
	parts := make([]string, 0, 4)
	var buf strings.Builder
	rs := []rune(s)
	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, buf.String())
			buf.Reset()
		}
	}
	for i, r := range rs {
		if !isASCIIAlnum(r) {
			flush()
			continue
		}
		if isUpper(r) && i > 0 {
			prev := rs[i-1]
			var next rune
			if i+1 < len(rs) {
				next = rs[i+1]
			}
			if isLower(prev) || isDigit(prev) {
				flush()
			} else if isUpper(prev) && isLower(next) {
				flush()
			}
		}
		buf.WriteRune(r)
	}
	flush()
	return parts
}
