package mapper

import (
	"reflect"
	"strings"
)

// ImplementationSuffix is appended to an interface identity to obtain the
// name under which its generated implementation is registered.
const ImplementationSuffix = "Impl"

// CapabilityPrefix prefixes the simple type name of a custom mapper to obtain
// the name of the setter capability that accepts it.
const CapabilityPrefix = "SetCustomMapper"

// Identity is the canonical name of a mapper interface: "<import path>.<Name>".
//
// Example:
//
//	github.com/acme/mappers.UserMapper
type Identity string

// IdentityOf returns the identity of the interface (or type) T.
func IdentityOf[T any]() Identity {
	return IdentityOfType(reflect.TypeOf((*T)(nil)).Elem())
}

// IdentityOfType returns the canonical identity of t.
//
// Named types yield "<PkgPath>.<Name>". Pointers are not unwrapped: the
// identity describes the contract type itself. Unnamed types fall back to
// t.String() and predeclared types to their bare name.
func IdentityOfType(t reflect.Type) Identity {
	if t == nil {
		return ""
	}
	if t.Name() == "" {
		return Identity(t.String())
	}
	if p := t.PkgPath(); p != "" {
		return Identity(p + "." + t.Name())
	}
	return Identity(t.Name())
}

// ImplementationName returns the generated type name for id.
func ImplementationName(id Identity) string {
	return string(id) + ImplementationSuffix
}

// CapabilityName returns the setter capability name expected for a custom
// mapper of type t, or "" when t has no simple name.
func CapabilityName(t reflect.Type) string {
	n := SimpleName(t)
	if n == "" {
		return ""
	}
	return CapabilityPrefix + n
}

// SimpleName returns the unqualified name of t with pointer indirections
// and type arguments removed. Unnamed types yield "".
func SimpleName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return stripTypeParams(t.Name())
}

func stripTypeParams(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}
