package mapper

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// maxAncestry bounds the embedded-struct walk.
const maxAncestry = 32

// capability is a single-argument setter found on a generated type.
type capability struct {
	name         string
	index        int
	param        reflect.Type
	returnsError bool
}

// capabilityTable lists the setter capabilities of one generated type.
type capabilityTable struct {
	byName map[string]capability
	// ifaces holds capabilities taking a named, non-empty interface whose
	// method name matches that interface, in method name order.
	ifaces []capability
}

// Binder wires custom mappers into generated instances through their
// SetCustomMapper<Type> capabilities.
//
// Capability tables are computed once per generated type and reused.
type Binder struct {
	tables sync.Map // map[reflect.Type]*capabilityTable
}

// NewBinder returns an empty Binder.
func NewBinder() *Binder { return &Binder{} }

// Bind invokes the capability of instance that accepts delegate.
//
// The lookup tries, in order, stopping at the first match:
//  1. SetCustomMapper<T>(T) where T is the delegate's exact runtime type;
//  2. the same for each embedded ancestor of the delegate (first embedded
//     struct field, then its first embedded field, ...), passing the
//     embedded value;
//  3. SetCustomMapper<I>(I) for each named interface I implemented by the delegate.
//
// A nil delegate is ignored. Instances of struct or array type are refused:
// a setter called on them would only mutate a copy.
func (b *Binder) Bind(instance, delegate any) error {
	_, err := b.bind(instance, delegate)
	return err
}

// bind is Bind that also reports the capability that matched.
func (b *Binder) bind(instance, delegate any) (string, error) {
	if delegate == nil {
		return "", nil
	}
	if instance == nil {
		return "", configErr("", "", ErrCapabilityInvocation, "nil target instance", nil)
	}

	it := reflect.TypeOf(instance)
	tbl := b.table(it)
	dv := reflect.ValueOf(delegate)
	expected := CapabilityName(dv.Type())

	for _, cand := range ancestry(dv) {
		name := CapabilityName(cand.Type())
		if name == "" {
			continue
		}
		c, ok := tbl.byName[name]
		if !ok || c.param != cand.Type() {
			continue
		}
		return c.name, invokeCapability(instance, it, c, cand)
	}

	for _, c := range tbl.ifaces {
		if dv.Type().Implements(c.param) {
			return c.name, invokeCapability(instance, it, c, dv)
		}
	}

	if expected == "" {
		return "", configErr("", it.String(), ErrCapabilityNotFound,
			fmt.Sprintf("given a custom mapper of type %v which has no simple name, so no %s<Type> setter can accept it",
				dv.Type(), CapabilityPrefix), nil)
	}
	return "", configErr("", it.String(), ErrCapabilityNotFound,
		fmt.Sprintf("given a custom mapper of type %v while setter %s does not exist, add it to the mapper interface",
			dv.Type(), expected), nil)
}

// Capabilities returns the capability names exposed by the type of instance, sorted.
func (b *Binder) Capabilities(instance any) []string {
	if instance == nil {
		return nil
	}
	tbl := b.table(reflect.TypeOf(instance))
	out := make([]string, 0, len(tbl.byName))
	for name := range tbl.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (b *Binder) table(t reflect.Type) *capabilityTable {
	if v, ok := b.tables.Load(t); ok {
		return v.(*capabilityTable)
	}
	v, _ := b.tables.LoadOrStore(t, buildCapabilityTable(t))
	return v.(*capabilityTable)
}

func buildCapabilityTable(t reflect.Type) *capabilityTable {
	tbl := &capabilityTable{byName: map[string]capability{}}

	// reflect returns methods in lexicographic order.
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, CapabilityPrefix) {
			continue
		}
		mt := m.Type // receiver is In(0)
		if mt.NumIn() != 2 || mt.IsVariadic() {
			continue
		}
		returnsError := false
		switch mt.NumOut() {
		case 0:
		case 1:
			if mt.Out(0) != errorType {
				continue
			}
			returnsError = true
		default:
			continue
		}

		c := capability{name: m.Name, index: i, param: mt.In(1), returnsError: returnsError}
		tbl.byName[m.Name] = c

		if c.param.Kind() == reflect.Interface && c.param.NumMethod() > 0 &&
			m.Name == CapabilityPrefix+SimpleName(c.param) {
			tbl.ifaces = append(tbl.ifaces, c)
		}
	}
	return tbl
}

// ancestry returns v followed by its embedded ancestors, most-derived first.
func ancestry(v reflect.Value) []reflect.Value {
	out := []reflect.Value{v}
	cur := v
	for depth := 0; depth < maxAncestry; depth++ {
		sv := cur
		if sv.Kind() == reflect.Pointer {
			if sv.IsNil() {
				break
			}
			sv = sv.Elem()
		}
		if sv.Kind() != reflect.Struct {
			break
		}

		idx, ok := firstEmbedded(sv.Type())
		if !ok {
			break
		}
		fv := sv.Field(idx)
		switch {
		case fv.Kind() == reflect.Pointer:
			if fv.IsNil() {
				return out
			}
		case fv.CanAddr():
			fv = fv.Addr()
		}
		out = append(out, fv)
		cur = fv
	}
	return out
}

// firstEmbedded returns the index of the first exported embedded field of st
// whose type is a named struct or a pointer to one.
func firstEmbedded(st reflect.Type) (int, bool) {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous || !f.IsExported() {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.Name() != "" {
			return i, true
		}
	}
	return 0, false
}

func invokeCapability(instance any, it reflect.Type, c capability, arg reflect.Value) (err error) {
	if k := it.Kind(); k == reflect.Struct || k == reflect.Array {
		return configErr("", it.String(), ErrCapabilityInvocation, c.name,
			fmt.Errorf("instance of non-pointer type %v would only receive a copy; its constructor must return a pointer", it))
	}
	defer func() {
		if r := recover(); r != nil {
			err = configErr("", it.String(), ErrCapabilityInvocation, c.name, recoveredError("setter panicked", r))
		}
	}()

	out := reflect.ValueOf(instance).Method(c.index).Call([]reflect.Value{arg})
	if c.returnsError && !out[0].IsNil() {
		return configErr("", it.String(), ErrCapabilityInvocation, c.name, out[0].Interface().(error))
	}
	return nil
}
