package annotation

import (
	"context"
	"fmt"
)

// Deps carries the annotations an annotator declared it requires.
type Deps map[Name]any

type Annotator interface {
	Name() Name
	Requires() []Name
	Annotate(ctx context.Context, in Input, deps Deps) (any, error)
}

// Registry is the validated annotator graph.
type Registry struct {
	annotators map[Name]Annotator
	order      []Name
}

func NewRegistry(annotators ...Annotator) (*Registry, error) {
	r := &Registry{annotators: make(map[Name]Annotator, len(annotators))}
	for _, a := range annotators {
		if _, dup := r.annotators[a.Name()]; dup {
			return nil, fmt.Errorf("annotation: %s registered twice", a.Name())
		}
		r.annotators[a.Name()] = a
		r.order = append(r.order, a.Name())
	}

	for _, a := range annotators {
		for _, dep := range a.Requires() {
			if _, ok := r.annotators[dep]; !ok {
				return nil, fmt.Errorf("annotation: %s requires unregistered %s", a.Name(), dep)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[Name]int, len(r.order))
	var visit func(n Name) error
	visit = func(n Name) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("annotation: dependency cycle through %s", n)
		case done:
			return nil
		}
		state[n] = visiting
		for _, dep := range r.annotators[n].Requires() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}
	for _, n := range r.order {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Names() []Name {
	return append([]Name(nil), r.order...)
}

func (r *Registry) Has(name Name) bool {
	_, ok := r.annotators[name]
	return ok
}

type funcAnnotator struct {
	name     Name
	requires []Name
	fn       func(ctx context.Context, in Input, deps Deps) (any, error)
}

// NewFunc wraps a local function as an annotator.
func NewFunc(name Name, fn func(ctx context.Context, in Input, deps Deps) (any, error), requires ...Name) Annotator {
	return &funcAnnotator{name: name, requires: requires, fn: fn}
}

func (f *funcAnnotator) Name() Name       { return f.name }
func (f *funcAnnotator) Requires() []Name { return f.requires }
func (f *funcAnnotator) Annotate(ctx context.Context, in Input, deps Deps) (any, error) {
	return f.fn(ctx, in, deps)
}
