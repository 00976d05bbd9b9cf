package mapper_test

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sghaida/omap/mapper"
	"github.com/stretchr/testify/require"
)

// Custom mappers

type EmailFormatter interface {
	Format(user string) string
}

type CustomEmailFormatter struct{ Domain string }

func (f *CustomEmailFormatter) Format(user string) string {
	return strings.ToLower(user) + "@" + f.Domain
}

type BaseCustom struct{ Name string }

type SubCustom struct {
	BaseCustom
	Extra int
}

type Unrelated struct{}

// Connection is the source of OrderMapper.
type Connection struct{ DSN string }

// Mapper interfaces and their "generated" implementations

type UserMapper interface {
	MapEmail(user string) string
	Formatter() EmailFormatter
}

type UserMapperImpl struct {
	formatter EmailFormatter
}

func NewUserMapperImpl() *UserMapperImpl { return &UserMapperImpl{} }

func (m *UserMapperImpl) SetCustomMapperEmailFormatter(f EmailFormatter) { m.formatter = f }

func (m *UserMapperImpl) Formatter() EmailFormatter { return m.formatter }

func (m *UserMapperImpl) MapEmail(user string) string {
	if m.formatter == nil {
		return user
	}
	return m.formatter.Format(user)
}

type OrderMapper interface {
	Conn() *Connection
}

type OrderMapperImpl struct{ conn *Connection }

func NewOrderMapperImpl(conn *Connection) *OrderMapperImpl { return &OrderMapperImpl{conn: conn} }

func (m *OrderMapperImpl) Conn() *Connection { return m.conn }

type AuditMapper interface {
	Base() *BaseCustom
	Exact() *SubCustom
}

type AuditMapperImpl struct {
	base  *BaseCustom
	exact *SubCustom
}

func NewAuditMapperImpl() *AuditMapperImpl { return &AuditMapperImpl{} }

func (m *AuditMapperImpl) SetCustomMapperBaseCustom(b *BaseCustom) { m.base = b }

func (m *AuditMapperImpl) Base() *BaseCustom { return m.base }

func (m *AuditMapperImpl) Exact() *SubCustom { return m.exact }

// PreciseMapper declares a setter for the exact type and for its ancestor.
type PreciseMapper interface{ AuditMapper }

type PreciseMapperImpl struct{ AuditMapperImpl }

func NewPreciseMapperImpl() *PreciseMapperImpl { return &PreciseMapperImpl{} }

func (m *PreciseMapperImpl) SetCustomMapperSubCustom(s *SubCustom) { m.exact = s }

type FailingSetterMapper interface{ Marker() }

type FailingSetterMapperImpl struct{}

func NewFailingSetterMapperImpl() *FailingSetterMapperImpl { return &FailingSetterMapperImpl{} }

func (*FailingSetterMapperImpl) Marker() {}

func (*FailingSetterMapperImpl) SetCustomMapperBaseCustom(*BaseCustom) error {
	return errBadSetter
}

func (*FailingSetterMapperImpl) SetCustomMapperUnrelated(*Unrelated) {
	panic("setter exploded")
}

var errBadSetter = errors.New("bad setter")

// Shapes that only exist to exercise constructor validation.

type AmbiguousMapper interface{ Marker() }

type FlakyMapper interface{ Marker() }

type flakyMapperImpl struct{ attempt int64 }

func (*flakyMapperImpl) Marker() {}

type CountedMapper interface{ Marker() }

type countedMapperImpl struct{}

func (*countedMapperImpl) Marker() {}

// newNamespace registers the fixtures in a fresh namespace.
func newNamespace(t testing.TB) *mapper.Namespace {
	t.Helper()

	ns := mapper.NewNamespace()
	require.NoError(t, mapper.Provide[UserMapper](ns, NewUserMapperImpl))
	require.NoError(t, mapper.Provide[OrderMapper](ns, NewOrderMapperImpl))
	require.NoError(t, mapper.Provide[AuditMapper](ns, NewAuditMapperImpl))
	require.NoError(t, mapper.Provide[PreciseMapper](ns, NewPreciseMapperImpl))
	require.NoError(t, mapper.Provide[FailingSetterMapper](ns, NewFailingSetterMapperImpl))
	require.NoError(t, mapper.Provide[AmbiguousMapper](ns,
		func() *flakyMapperImpl { return &flakyMapperImpl{} },
		func(int) *flakyMapperImpl { return &flakyMapperImpl{} },
	))
	return ns
}

// registerFlaky registers a FlakyMapper whose constructor fails the first `failures` times.
func registerFlaky(t testing.TB, ns *mapper.Namespace, failures int64) *atomic.Int64 {
	t.Helper()

	calls := &atomic.Int64{}
	require.NoError(t, mapper.Provide[FlakyMapper](ns, func() (*flakyMapperImpl, error) {
		n := calls.Add(1)
		if n <= failures {
			return nil, errors.New("database not ready")
		}
		return &flakyMapperImpl{attempt: n}, nil
	}))
	return calls
}

func newResolver(t testing.TB) *mapper.Resolver {
	t.Helper()
	return mapper.New(mapper.WithNamespace(newNamespace(t)))
}
