// Package mapper resolves generated mapper implementations at runtime.
//
// A mapper is declared as a Go interface. A generator (see cmd/mappergen)
// emits its implementation and registers it in a Namespace under the
// interface identity plus ImplementationSuffix:
//
//	github.com/acme/mappers.UserMapper      // identity
//	github.com/acme/mappers.UserMapperImpl  // registered implementation
//
// A Resolver turns (interface, sources, custom mappers) into exactly one
// instance per combination:
//
//   - Factory looks up the implementation, requires exactly one constructor,
//     checks its arity against the sources and calls it.
//   - Binder hands every custom mapper to the instance through a setter named
//     SetCustomMapper<Type>, falling back to the embedded ancestors of the
//     custom mapper and then to interfaces it implements.
//   - Cache keeps the fully bound instance for the rest of the process; a
//     failed build leaves no entry behind.
//
// Every failure is a ConfigurationError; use errors.Is with the Err* reasons
// to tell them apart.
//
// Typical use
//
//	r := mapper.New(mapper.WithLogger(logger))
//
//	users, err := mapper.Resolve[UserMapper](r)
//	orders, err := mapper.ResolveSource[OrderMapper](r, db)
//	users, err = mapper.NewBuilder[UserMapper](r).WithCustom(formatter).Build()
//
// Default returns a process-wide Resolver over DefaultNamespace for code that
// does not pass one around.
package mapper
