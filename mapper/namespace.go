package mapper

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Constructor is a parsed, exported constructor of a generated implementation.
//
// Supported shapes:
//   - func(P1, P2, ...) T
//   - func(P1, P2, ...) (T, error)
type Constructor struct {
	fn           reflect.Value
	params       []reflect.Type
	variadic     bool
	returnsError bool
	out          reflect.Type
}

// NumParams returns the number of declared parameters.
func (c Constructor) NumParams() int { return len(c.params) }

// Params returns a copy of the declared parameter types.
func (c Constructor) Params() []reflect.Type {
	out := make([]reflect.Type, len(c.params))
	copy(out, c.params)
	return out
}

// Variadic reports whether the last parameter is variadic.
func (c Constructor) Variadic() bool { return c.variadic }

// Returns is the instance type produced by the constructor.
func (c Constructor) Returns() reflect.Type { return c.out }

// String renders the constructor signature.
func (c Constructor) String() string { return c.fn.Type().String() }

func parseConstructor(ctor any) (Constructor, error) {
	if ctor == nil {
		return Constructor{}, fmt.Errorf("constructor cannot be nil")
	}
	fn := reflect.ValueOf(ctor)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return Constructor{}, fmt.Errorf("constructor must be a function, got %v", ft.Kind())
	}
	if fn.IsNil() {
		return Constructor{}, fmt.Errorf("constructor cannot be a nil func")
	}

	switch ft.NumOut() {
	case 1:
	case 2:
		if !ft.Out(1).Implements(errorType) {
			return Constructor{}, fmt.Errorf("constructor's second return value must be error, got %v", ft.Out(1))
		}
	default:
		return Constructor{}, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", ft.NumOut())
	}

	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return Constructor{
		fn:           fn,
		params:       params,
		variadic:     ft.IsVariadic(),
		returnsError: ft.NumOut() == 2,
		out:          ft.Out(0),
	}, nil
}

// Implementation is a generated type as seen by the resolver: its registered
// name and its exported constructors.
type Implementation struct {
	TypeName     string
	Constructors []Constructor
}

// Namespace maps generated type names to implementations.
//
// Generated code populates a Namespace from init(); the resolver only reads it.
// A Namespace is safe for concurrent use.
type Namespace struct {
	mu    sync.RWMutex
	items map[string]*Implementation
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{items: map[string]*Implementation{}}
}

var defaultNamespace = NewNamespace()

// DefaultNamespace returns the process-wide namespace generated code registers into.
func DefaultNamespace() *Namespace { return defaultNamespace }

// Register adds a generated type under typeName with its exported constructors.
//
// Registering more than one constructor is allowed; resolution of such a type
// fails with ErrAmbiguousConstructor. Registering the same name again with the
// same constructors is a no-op, with different ones ErrConflictingRegistration.
func (n *Namespace) Register(typeName string, ctors ...any) error {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return configErr("", "", ErrInvalidConstructor, "empty type name", nil)
	}

	parsed := make([]Constructor, 0, len(ctors))
	for i, c := range ctors {
		pc, err := parseConstructor(c)
		if err != nil {
			return configErr("", typeName, ErrInvalidConstructor, fmt.Sprintf("constructor #%d", i), err)
		}
		parsed = append(parsed, pc)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if old, ok := n.items[typeName]; ok {
		if sameConstructors(old.Constructors, parsed) {
			return nil
		}
		return configErr("", typeName, ErrConflictingRegistration, "type name already registered", nil)
	}
	n.items[typeName] = &Implementation{TypeName: typeName, Constructors: parsed}
	return nil
}

// MustRegister is Register for generated init() code: it panics on error.
func (n *Namespace) MustRegister(typeName string, ctors ...any) *Namespace {
	if err := n.Register(typeName, ctors...); err != nil {
		panic(err)
	}
	return n
}

// Lookup returns the implementation registered under typeName.
func (n *Namespace) Lookup(typeName string) (*Implementation, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	impl, ok := n.items[typeName]
	return impl, ok
}

// Names returns the registered type names in sorted order.
func (n *Namespace) Names() []string {
	n.mu.RLock()
	out := make([]string, 0, len(n.items))
	for k := range n.items {
		out = append(out, k)
	}
	n.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of registered types.
func (n *Namespace) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.items)
}

// Provide registers ctors as the generated implementation of interface I in ns.
//
//	func init() {
//		mapper.MustProvide[UserMapper](mapper.DefaultNamespace(), NewUserMapperImpl)
//	}
func Provide[I any](ns *Namespace, ctors ...any) error {
	return ns.Register(ImplementationName(IdentityOf[I]()), ctors...)
}

// MustProvide is Provide that panics on error.
func MustProvide[I any](ns *Namespace, ctors ...any) {
	if err := Provide[I](ns, ctors...); err != nil {
		panic(err)
	}
}

func sameConstructors(a, b []Constructor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].fn.Pointer() != b[i].fn.Pointer() {
			return false
		}
	}
	return true
}
