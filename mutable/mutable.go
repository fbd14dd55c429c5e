// Package mutable allows to change parameters of running DSP components.
//
// Every component that needs to be changed at runtime embeds a mutable
// Context. Mutations created with this context are delivered to the
// component together with signal buffers and applied by the component
// itself, so no synchronization is needed inside the component.
package mutable

import (
	"github.com/rs/xid"
)

// zero value for context is immutable.
var immutable = Context{}

type (
	// Context can be embedded to make structure behaviour mutable.
	Context xid.ID

	// Mutation is mutator function associated with a certain mutable
	// context.
	Mutation struct {
		Context
		mutator MutatorFunc
	}

	// Mutations is a set of mutators mapped to their contexts.
	Mutations map[Context][]MutatorFunc

	// MutatorFunc mutates the object.
	MutatorFunc func() error
)

// Mutable returns new mutable context.
func Mutable() Context {
	return Context(xid.New())
}

// Immutable returns immutable context.
func Immutable() Context {
	return immutable
}

// IsMutable returns true if object is mutable.
func (c Context) IsMutable() bool {
	return c != immutable
}

// String returns unique identifier of the context.
func (c Context) String() string {
	if !c.IsMutable() {
		return "immutable"
	}
	return xid.ID(c).String()
}

// Mutate associates provided mutator with mutable context and returns
// mutation. It panics if context is immutable.
func (c Context) Mutate(m MutatorFunc) Mutation {
	if c == immutable {
		panic("mutate immutable")
	}
	return Mutation{
		Context: c,
		mutator: m,
	}
}

// Apply mutator function.
func (m Mutation) Apply() error {
	return m.mutator()
}

// Put mutation to the set of mutations. Mutations of immutable contexts
// are ignored.
func (ms Mutations) Put(m Mutation) Mutations {
	if m.Context == immutable {
		return ms
	}
	if ms == nil {
		return Mutations{m.Context: {m.mutator}}
	}
	ms[m.Context] = append(ms[m.Context], m.mutator)
	return ms
}

// ApplyTo consumes mutations defined for provided context. Mutators are
// applied in the order they were put. The first error stops execution,
// remaining mutators of this context are dropped.
func (ms Mutations) ApplyTo(c Context) error {
	if ms == nil || c == immutable {
		return nil
	}
	fns, ok := ms[c]
	if !ok {
		return nil
	}
	delete(ms, c)
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// Append mutations to the set.
func (ms Mutations) Append(source Mutations) Mutations {
	if len(source) == 0 {
		return ms
	}
	if ms == nil {
		ms = make(Mutations, len(source))
	}
	for c, fns := range source {
		ms[c] = append(ms[c], fns...)
	}
	return ms
}

// Detach removes mutations of provided context from the set and returns
// them as a separate set.
func (ms Mutations) Detach(c Context) Mutations {
	if ms == nil {
		return nil
	}
	if fns, ok := ms[c]; ok {
		delete(ms, c)
		return Mutations{c: fns}
	}
	return nil
}
