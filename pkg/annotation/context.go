// Package annotation holds the per-turn annotation context. Annotations are
// computed lazily: the first Get triggers the annotator, later Gets in the same
// turn share the result. A failed annotator leaves its field absent.
package annotation

import (
	"context"
	"fmt"
	"sync"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/errkind"

	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 8

type entry struct {
	done  chan struct{}
	value any
	err   error
}

type Context struct {
	reg      *Registry
	in       Input
	logger   logger.ILogger
	parallel int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[Name]*entry
}

type ContextOption func(*Context)

// WithParallelism bounds how many annotators Prefetch runs at once.
func WithParallelism(n int) ContextOption {
	return func(c *Context) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// NewContext creates the context for one turn. Annotator calls run under ctx,
// so its deadline is the turn deadline. Close must be called when the turn ends.
func NewContext(ctx context.Context, reg *Registry, in Input, log logger.ILogger, opts ...ContextOption) *Context {
	c := &Context{
		reg:      reg,
		in:       in,
		logger:   log,
		parallel: defaultParallelism,
		entries:  make(map[Name]*entry),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) Input() Input { return c.in }

// Get returns the annotation, computing it on first access. It gives up when
// ctx is done; the computation itself keeps running for other readers.
func (c *Context) Get(ctx context.Context, name Name) (any, bool) {
	if c == nil || c.reg == nil || !c.reg.Has(name) {
		return nil, false
	}
	e := c.start(name)
	select {
	case <-e.done:
		return e.value, e.err == nil
	case <-ctx.Done():
		return nil, false
	}
}

// Prefetch starts every annotator concurrently and waits until all have
// finished or ctx is done.
func (c *Context) Prefetch(ctx context.Context) {
	if c == nil || c.reg == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for _, name := range c.reg.order {
		g.Go(func() error {
			c.Get(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

// Present lists the annotations that resolved successfully so far.
func (c *Context) Present() []Name {
	if c == nil || c.reg == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Name
	for _, n := range c.reg.order {
		e, ok := c.entries[n]
		if !ok {
			continue
		}
		select {
		case <-e.done:
			if e.err == nil {
				out = append(out, n)
			}
		default:
		}
	}
	return out
}

// Close cancels outstanding annotator calls and waits for them to return.
func (c *Context) Close() {
	if c == nil || c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
}

func (c *Context) start(name Name) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[name]; ok {
		return e
	}
	e := &entry{done: make(chan struct{})}
	c.entries[name] = e
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(e.done)
		e.value, e.err = c.run(name)
	}()
	return e
}

func (c *Context) run(name Name) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("annotator %s panicked: %v", name, r)
			c.logger.Error("annotation", "Annotator panicked", map[string]interface{}{
				"annotator": string(name),
				"panic":     fmt.Sprint(r),
			})
		}
	}()

	a := c.reg.annotators[name]
	deps := make(Deps, len(a.Requires()))
	for _, dep := range a.Requires() {
		dv, ok := c.Get(c.ctx, dep)
		if !ok {
			c.logger.Debug("annotation", "Skipping annotator with absent requirement", map[string]interface{}{
				"annotator":   string(name),
				"requirement": string(dep),
			})
			return nil, fmt.Errorf("annotator %s: requirement %s absent", name, dep)
		}
		deps[dep] = dv
	}

	v, err = a.Annotate(c.ctx, c.in, deps)
	if err != nil {
		c.logger.Warn("annotation", "Annotator failed", map[string]interface{}{
			"annotator": string(name),
			"kind":      errkind.Name(err),
			"error":     err.Error(),
		})
		return nil, err
	}
	return v, nil
}

func typed[T any](c *Context, ctx context.Context, name Name) (T, bool) {
	var zero T
	v, ok := c.Get(ctx, name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func (c *Context) Segments(ctx context.Context) ([]string, bool) {
	return typed[[]string](c, ctx, Segmenter)
}

func (c *Context) DialogActs(ctx context.Context) (DialogActs, bool) {
	return typed[DialogActs](c, ctx, DialogAct)
}

// TopDialogAct returns the most likely dialog act, or "" when absent.
func (c *Context) TopDialogAct(ctx context.Context) string {
	acts, ok := c.DialogActs(ctx)
	if !ok {
		return ""
	}
	label, _ := acts.Top()
	return label
}

func (c *Context) EntityLinker(ctx context.Context) (*EntityLinkerResult, bool) {
	return typed[*EntityLinkerResult](c, ctx, EntityLinker)
}

func (c *Context) Coref(ctx context.Context) (string, bool) {
	return typed[string](c, ctx, Coref)
}

func (c *Context) Question(ctx context.Context) (QuestionResult, bool) {
	return typed[QuestionResult](c, ctx, Question)
}

func (c *Context) Emotion(ctx context.Context) (EmotionResult, bool) {
	return typed[EmotionResult](c, ctx, Emotion)
}

func (c *Context) CoreNLP(ctx context.Context) (CoreNLPResult, bool) {
	return typed[CoreNLPResult](c, ctx, CoreNLP)
}
