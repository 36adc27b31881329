package naming

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultLimit bounds the number of suffixed candidates tried for one base name.
const DefaultLimit = 1 << 16

// ErrScopeExhausted is returned when no unique candidate was found within the limit.
var ErrScopeExhausted = errors.New("naming: scope exhausted")

// Scope is a set of identifiers already taken in one namespace. A generation run
// owns one file-wide scope and creates short-lived local scopes per attribute.
type Scope struct {
	taken map[string]bool
	limit int
}

// NewScope returns an empty scope with the given names already taken.
func NewScope(reserved ...string) *Scope {
	s := &Scope{taken: make(map[string]bool, len(reserved)), limit: DefaultLimit}
	s.Reserve(reserved...)
	return s
}

// WithLimit caps how many candidates Claim tries before giving up.
func (s *Scope) WithLimit(n int) *Scope {
	if n > 0 {
		s.limit = n
	}
	return s
}

// Reserve marks names as taken without allocating them.
func (s *Scope) Reserve(names ...string) {
	for _, name := range names {
		s.taken[name] = true
	}
}

// Taken reports whether name is already used in the scope.
func (s *Scope) Taken(name string) bool {
	return s.taken[name]
}

// Len returns the number of taken names.
func (s *Scope) Len() int {
	return len(s.taken)
}

// Allocate sanitizes title and claims a unique identifier derived from it.
func (s *Scope) Allocate(title string) (string, error) {
	return s.Claim(Sanitize(title))
}

// Claim records base, or the first free base_N with N >= 2, and returns it.
func (s *Scope) Claim(base string) (string, error) {
	if !s.taken[base] {
		s.taken[base] = true
		return base, nil
	}
	for i := 2; i < s.limit+2; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !s.taken[candidate] {
			s.taken[candidate] = true
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q after %d attempts", ErrScopeExhausted, base, s.limit)
}
