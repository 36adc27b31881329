package pipeline

import (
	"context"

	"github.com/electwix/catalog-export/internal/catalog"
	"github.com/electwix/catalog-export/internal/codegen/ast"
)

// Hooks provides extension points in a run. A hook returning an error aborts
// the run with that error.
type Hooks struct {
	// BeforeGenerate sees the validated catalog.
	BeforeGenerate func(ctx context.Context, cat *catalog.Catalog) error

	// AfterGenerate sees the declaration tree before it is written.
	AfterGenerate func(ctx context.Context, file *ast.File) error

	// BeforeWrite is skipped on dry runs.
	BeforeWrite func(ctx context.Context, summary Summary) error

	// AfterWrite runs once the output is on disk, or found unchanged.
	AfterWrite func(ctx context.Context, summary Summary) error
}

// Chain combines two Hooks, calling h's hooks first, then other's hooks.
// If a hook in h returns an error, other's hook is not called.
func (h Hooks) Chain(other Hooks) Hooks {
	return Hooks{
		BeforeGenerate: chainHook(h.BeforeGenerate, other.BeforeGenerate),
		AfterGenerate:  chainHook(h.AfterGenerate, other.AfterGenerate),
		BeforeWrite:    chainHook(h.BeforeWrite, other.BeforeWrite),
		AfterWrite:     chainHook(h.AfterWrite, other.AfterWrite),
	}
}

func chainHook[T any](first, second func(context.Context, T) error) func(context.Context, T) error {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, arg T) error {
		if err := first(ctx, arg); err != nil {
			return err
		}
		return second(ctx, arg)
	}
}

// NoHooks returns a Hooks with all nil functions.
func NoHooks() Hooks {
	return Hooks{}
}
