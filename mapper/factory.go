package mapper

import (
	"errors"
	"fmt"
	"reflect"
)

// Factory instantiates generated implementations found in a Namespace.
type Factory struct {
	ns *Namespace
}

// NewFactory returns a Factory reading from ns (DefaultNamespace when nil).
func NewFactory(ns *Namespace) *Factory {
	if ns == nil {
		ns = DefaultNamespace()
	}
	return &Factory{ns: ns}
}

// Namespace returns the namespace the factory reads from.
func (f *Factory) Namespace() *Namespace { return f.ns }

// Create builds a raw (unbound) instance of the implementation generated for id.
//
// args == nil selects default construction: the single constructor must then
// take no parameters. Otherwise len(args) must match the constructor's
// parameter count and arguments are passed positionally without coercion.
func (f *Factory) Create(id Identity, args []any) (any, error) {
	if id == "" {
		return nil, configErr(id, "", ErrEmptyIdentity, "", nil)
	}
	typeName := ImplementationName(id)

	impl, ok := f.ns.Lookup(typeName)
	if !ok {
		return nil, configErr(id, typeName, ErrImplementationNotFound,
			"unable to load generated type (was its generated file compiled into this binary?)", nil)
	}

	switch n := len(impl.Constructors); n {
	case 0:
		return nil, configErr(id, typeName, ErrNoConstructor, "generated type should have 1 constructor", nil)
	case 1:
	default:
		return nil, configErr(id, typeName, ErrAmbiguousConstructor,
			fmt.Sprintf("generated type should have 1 constructor, found %d", n), nil)
	}
	ctor := impl.Constructors[0]

	in, err := bindArguments(id, typeName, ctor, args)
	if err != nil {
		return nil, err
	}

	inst, err := invokeConstructor(ctor, in)
	if err != nil {
		return nil, configErr(id, typeName, ErrConstruction, "instantiation failed", err)
	}
	return inst, nil
}

func bindArguments(id Identity, typeName string, ctor Constructor, args []any) ([]reflect.Value, error) {
	np := ctor.NumParams()
	n := len(args)

	arityOK := n == np
	if ctor.variadic {
		arityOK = n >= np-1
	}
	if !arityOK {
		detail := fmt.Sprintf("constructor %s needs %d argument(s), got %d", ctor, np, n)
		if args == nil {
			detail = fmt.Sprintf("constructor %s needs %d argument(s), none supplied", ctor, np)
		}
		return nil, configErr(id, typeName, ErrArityMismatch, detail, nil)
	}

	in := make([]reflect.Value, n)
	for i, arg := range args {
		pt := paramTypeAt(ctor, i)
		v, ok := argumentValue(arg, pt)
		if !ok {
			return nil, configErr(id, typeName, ErrArgumentType,
				fmt.Sprintf("argument #%d of type %T is not assignable to %v", i, arg, pt), nil)
		}
		in[i] = v
	}
	return in, nil
}

func paramTypeAt(ctor Constructor, i int) reflect.Type {
	last := len(ctor.params) - 1
	if ctor.variadic && i >= last {
		return ctor.params[last].Elem()
	}
	return ctor.params[i]
}

func argumentValue(arg any, pt reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		if !nilable(pt) {
			return reflect.Value{}, false
		}
		return reflect.Zero(pt), true
	}
	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(pt) {
		return reflect.Value{}, false
	}
	return v, true
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

var errNilInstance = errors.New("constructor returned nil instance")

func invokeConstructor(ctor Constructor, in []reflect.Value) (inst any, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = recoveredError("constructor panicked", r)
		}
	}()

	out := ctor.fn.Call(in)

	if ctor.returnsError && !out[1].IsNil() {
		return nil, fmt.Errorf("constructor returned error: %w", out[1].Interface().(error))
	}
	if nilable(out[0].Type()) && out[0].IsNil() {
		return nil, errNilInstance
	}
	return out[0].Interface(), nil
}

func recoveredError(msg string, r any) error {
	if e, ok := r.(error); ok {
		return fmt.Errorf("%s: %w", msg, e)
	}
	return fmt.Errorf("%s: %v", msg, r)
}
