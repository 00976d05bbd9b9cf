package mapper

// Builder accumulates sources and custom mappers for interface I, then
// resolves the matching singleton with Build.
//
//	m, err := mapper.NewBuilder[UserMapper](r).
//		WithSources(db).
//		WithCustom(formatter).
//		Build()
//
// Every accumulated value takes part in resolution: sources are passed
// positionally to the constructor and every custom mapper is bound.
type Builder[I any] struct {
	r       *Resolver
	sources []any
	customs []any
}

// NewBuilder starts a builder resolving through r (Default when nil).
func NewBuilder[I any](r *Resolver) *Builder[I] {
	if r == nil {
		r = Default()
	}
	return &Builder[I]{r: r}
}

// WithSources appends constructor arguments.
func (b *Builder[I]) WithSources(sources ...any) *Builder[I] {
	b.sources = append(b.sources, sources...)
	return b
}

// WithCustom appends custom mappers.
func (b *Builder[I]) WithCustom(customs ...any) *Builder[I] {
	b.customs = append(b.customs, customs...)
	return b
}

// Clone returns an independent copy of the builder.
func (b *Builder[I]) Clone() *Builder[I] {
	cp := &Builder[I]{r: b.r}
	cp.sources = append(cp.sources, b.sources...)
	cp.customs = append(cp.customs, b.customs...)
	return cp
}

// Build resolves the mapper. With no sources it uses default construction.
func (b *Builder[I]) Build() (I, error) {
	return ResolveWith[I](b.r, snapshot(b.sources), snapshot(b.customs))
}

// MustBuild is Build that panics on error.
func (b *Builder[I]) MustBuild() I {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

func snapshot(vs []any) []any {
	if len(vs) == 0 {
		return nil
	}
	out := make([]any, len(vs))
	copy(out, vs)
	return out
}
