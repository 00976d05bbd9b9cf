package mapper

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithNamespace sets the namespace generated implementations are looked up in.
func WithNamespace(ns *Namespace) Option {
	return func(r *Resolver) {
		if ns != nil {
			r.factory = NewFactory(ns)
		}
	}
}

// WithLogger sets the structured logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithCache sets the singleton cache, e.g. to share one between resolvers.
func WithCache(c *Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// Resolver returns singleton mapper instances for (interface, sources, custom mappers).
//
// It composes a Factory (construction), a Binder (custom mapper wiring) and a
// Cache (one instance per Key). A Resolver is safe for concurrent use.
type Resolver struct {
	factory *Factory
	binder  *Binder
	cache   *Cache
	log     *zap.Logger
}

// New returns a Resolver over DefaultNamespace with an empty cache.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		factory: NewFactory(nil),
		binder:  NewBinder(),
		cache:   NewCache(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Namespace returns the namespace the resolver loads implementations from.
func (r *Resolver) Namespace() *Namespace { return r.factory.Namespace() }

// Cache returns the resolver's singleton cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns the instance for (id, args, delegates), building it on first use.
//
// args == nil means default construction; delegates == nil means no custom
// mappers. A cached instance is returned unchanged: custom mappers are only
// bound when the instance is built. On error nothing is cached.
func (r *Resolver) Resolve(id Identity, args, delegates []any) (any, error) {
	if id == "" {
		return nil, configErr(id, "", ErrEmptyIdentity, "", nil)
	}
	key := DeriveKey(id, args, delegates)

	inst, cached, err := r.cache.GetOrCreate(key, func() (any, error) {
		return r.build(id, args, delegates)
	})
	if err != nil {
		r.log.Warn("mapper resolution failed",
			zap.String("identity", string(id)),
			zap.String("key", string(key)),
			zap.Error(err))
		return nil, err
	}
	if cached {
		r.log.Debug("mapper cache hit", zap.String("key", string(key)))
	}
	return inst, nil
}

func (r *Resolver) build(id Identity, args, delegates []any) (any, error) {
	r.log.Debug("building mapper",
		zap.String("identity", string(id)),
		zap.String("type", ImplementationName(id)),
		zap.Int("sources", len(args)),
		zap.Int("customMappers", len(delegates)))

	inst, err := r.factory.Create(id, args)
	if err != nil {
		return nil, err
	}

	for i, d := range delegates {
		matched, err := r.binder.bind(inst, d)
		if err != nil {
			return nil, withIdentity(err, id)
		}
		if matched == "" {
			continue
		}
		r.log.Debug("custom mapper bound",
			zap.String("identity", string(id)),
			zap.Int("index", i),
			zap.String("customMapper", fmt.Sprintf("%T", d)),
			zap.String("capability", matched))
	}
	return inst, nil
}

// Capabilities lists the custom mapper setters exposed by instance.
func (r *Resolver) Capabilities(instance any) []string {
	return r.binder.Capabilities(instance)
}

func withIdentity(err error, id Identity) error {
	var ce ConfigurationError
	if errors.As(err, &ce) && ce.Identity == "" {
		ce.Identity = id
		return ce
	}
	return err
}

// Resolve returns the mapper implementing I with default construction and no custom mappers.
func Resolve[I any](r *Resolver) (I, error) {
	return ResolveWith[I](r, nil, nil)
}

// ResolveSource returns the mapper implementing I built with a single constructor argument.
// A nil source means default construction.
func ResolveSource[I any](r *Resolver, source any) (I, error) {
	return ResolveWith[I](r, optionalList(source), nil)
}

// ResolveCustom returns the mapper implementing I with default construction
// and one custom mapper bound. A nil custom mapper means none.
func ResolveCustom[I any](r *Resolver, custom any) (I, error) {
	return ResolveWith[I](r, nil, optionalList(custom))
}

// ResolveWith is the general typed form of (*Resolver).Resolve.
func ResolveWith[I any](r *Resolver, sources, customs []any) (I, error) {
	var zero I
	id := IdentityOf[I]()
	inst, err := r.Resolve(id, sources, customs)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(I)
	if !ok {
		return zero, configErr(id, ImplementationName(id), ErrTypeMismatch,
			fmt.Sprintf("%v does not implement %v", reflect.TypeOf(inst), reflect.TypeOf((*I)(nil)).Elem()), nil)
	}
	return typed, nil
}

// MustResolve is Resolve that panics on error.
func MustResolve[I any](r *Resolver) I {
	m, err := Resolve[I](r)
	if err != nil {
		panic(err)
	}
	return m
}

func optionalList(v any) []any {
	if v == nil {
		return nil
	}
	return []any{v}
}
