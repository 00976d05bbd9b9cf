// Package omap is the runtime half of a code-generated object mapper.
//
// Mapper interfaces are declared by hand. cmd/mappergen generates their
// implementations, each with a single constructor and one
// SetCustomMapper<Type> setter per custom mapper, and registers them at init
// time. The mapper package resolves an interface to a cached instance:
//
//   - mapper: identity, namespace, factory, capability binder, singleton
//     cache, resolver and builder
//   - cmd/mappergen: the generator for *.mapper.yaml specs
//   - examples/acme: generated mappers, config and a runnable main
//   - examples/server: an HTTP API serving mapped values through a resolver
package omap
