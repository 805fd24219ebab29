// Package pipeline threads a mutable context through an ordered sequence
// of stages, continuing even when a stage appended diagnostics so later
// stages still see as much state as could be recovered.
package pipeline

// Stage processes a Context and returns the (possibly same) Context.
type Stage interface {
	Run(ctx *Context) *Context
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx *Context) *Context

func (f StageFunc) Run(ctx *Context) *Context { return f(ctx) }

// Pipeline runs its stages in order.
type Pipeline struct {
	stages []Stage
}

func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes every stage in order. Stages never abort the pipeline on a
// non-internal error; each stage accumulates diagnostics onto the context
// instead, so the caller always gets as much enriched state as later
// stages could produce from what earlier stages left behind.
func (p *Pipeline) Run(initial *Context) *Context {
	ctx := initial
	for _, stage := range p.stages {
		if ctx.Cancelled() {
			break
		}
		ctx = stage.Run(ctx)
	}
	return ctx
}
