// Command mappergen generates mapper implementations that the omap runtime
// can resolve.
//
// Each mapper is described by a small spec file next to the package that
// declares the mapper interface:
//
//	# user.mapper.yaml
//	package: acme
//	interface: UserMapper
//	sources:
//	  - name: clock
//	    type: Clock
//	customMappers:
//	  - type: "*EmailFormatter"
//
// and is generated with:
//
//	//go:generate go run github.com/sghaida/omap/cmd/mappergen -spec user.mapper.yaml -out user_gen.go
//
// Specs ending in .json are decoded as JSON, everything else as YAML.
//
// What mappergen generates
//
// For interface UserMapper the output contains:
//
//   - UserMapperImpl (or implType), a struct with one field per source and
//     one field per custom mapper
//   - NewUserMapperImpl(sources...), the single constructor; its parameters
//     are the sources in declaration order
//   - SetCustomMapper<Name>(v) for each custom mapper, where Name is the
//     simple name of the custom mapper type
//   - SourceX() and CustomMapperX() accessors for the mapping methods
//   - var _ UserMapper = (*UserMapperImpl)(nil)
//   - an init() registering the constructor under
//     mapper.ImplementationName(mapper.IdentityOf[UserMapper]())
//
// The mapping methods themselves live in hand-written files of the same
// package. The compile-time assertion fails until they exist.
//
// Imports
//
// The mapper runtime import is taken from imports.mapper, else from an
// import of ".../mapper" in the package's hand-written sources, else from
// the module containing mappergen. imports.extra lists packages referenced
// by source and custom mapper types. Imports already present in a previous
// output file are kept while the generated code still references them.
//
// Flags
//
//	-spec       path to the spec file (required)
//	-out        output file (required)
//	-log-level  debug|info|warn|error (default $MAPPERGEN_LOG_LEVEL or warn)
package main
