package mapper

import "sync"

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default returns the process-wide resolver over DefaultNamespace.
//
// It is created empty on first use and never torn down. Code that needs
// isolation (tests, multiple tenants) should create its own Resolver with New.
func Default() *Resolver {
	defaultOnce.Do(func() {
		defaultResolver = New(WithNamespace(DefaultNamespace()))
	})
	return defaultResolver
}

// Mapper returns the mapper implementing I from the Default resolver.
func Mapper[I any]() (I, error) {
	return Resolve[I](Default())
}

// MapperWith returns the mapper implementing I from the Default resolver,
// built with sources and bound to customs.
func MapperWith[I any](sources, customs []any) (I, error) {
	return ResolveWith[I](Default(), sources, customs)
}
