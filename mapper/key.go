package mapper

import (
	"fmt"
	"reflect"
	"strings"
)

// Key identifies one cached mapper instance: the interface identity plus the
// rendered argument and custom mapper lists.
//
// Example:
//
//	github.com/acme/mappers.OrderMapper-[*sql.DB@0xc000010000]-<nil>
type Key string

const absentList = "<nil>"

// DeriveKey builds the resolution key for (id, args, delegates).
//
// A nil list renders as "<nil>" and differs from an empty, non-nil list ("[]").
// Elements render as follows:
//   - nil: "<nil>"
//   - pointer, map, chan, func, unsafe pointer: "<type>@<address>" (identity)
//   - fmt.Stringer: "<type>(<quoted String()>)"
//   - anything else: "<type>(<Go-syntax value>)", strings quoted
//
// Every textual part is quoted, so the separating space cannot occur
// unescaped inside an element.
func DeriveKey(id Identity, args, delegates []any) Key {
	var b strings.Builder
	b.WriteString(string(id))
	b.WriteByte('-')
	writeList(&b, args)
	b.WriteByte('-')
	writeList(&b, delegates)
	return Key(b.String())
}

func writeList(b *strings.Builder, vs []any) {
	if vs == nil {
		b.WriteString(absentList)
		return
	}
	b.WriteByte('[')
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(renderKeyPart(v))
	}
	b.WriteByte(']')
}

func renderKeyPart(v any) string {
	if v == nil {
		return absentList
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%p", v, v)
	}
	if _, ok := v.(fmt.Stringer); ok {
		// fmt guards panicking String methods.
		return fmt.Sprintf("%T(%q)", v, v)
	}
	return fmt.Sprintf("%T(%#v)", v, v)
}
