package generator

import (
	"github.com/fish2000/halogen/pipe"
)

// Context carries the values fixed before a generator instance is created:
// the build target, the auto-schedule flag and the machine parameters, plus
// the ValueTracker that accumulates buffer constraint histories.
//
// One Context is typically shared across the builds of one pipeline for
// several targets (see ForTarget), precisely so the shared tracker can catch
// a generator whose buffer layout disagrees between targets.
type Context struct {
	target        pipe.Target
	autoSchedule  bool
	machineParams pipe.MachineParams
	tracker       *ValueTracker
}

// ContextOption configures a Context under construction.
type ContextOption func(*Context)

// WithAutoSchedule sets the auto-schedule flag.
func WithAutoSchedule(autoSchedule bool) ContextOption {
	return func(ctx *Context) { ctx.autoSchedule = autoSchedule }
}

// WithMachineParams sets the machine parameters.
func WithMachineParams(mp pipe.MachineParams) ContextOption {
	return func(ctx *Context) { ctx.machineParams = mp }
}

// WithValueTracker shares an existing tracker instead of creating a fresh
// one.
func WithValueTracker(tracker *ValueTracker) ContextOption {
	return func(ctx *Context) { ctx.tracker = tracker }
}

// NewContext returns a context for the given target. The machine parameters
// default to pipe.DefaultMachineParams, and a fresh ValueTracker is created
// unless one is shared with WithValueTracker.
func NewContext(target pipe.Target, opts ...ContextOption) *Context {
	ctx := &Context{
		target:        target,
		machineParams: pipe.DefaultMachineParams(),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.tracker == nil {
		ctx.tracker = NewValueTracker()
	}
	return ctx
}

// ForTarget returns a copy of the context for another target, sharing the
// same ValueTracker so constraint histories accumulate across targets.
func (ctx *Context) ForTarget(target pipe.Target) *Context {
	clone := *ctx
	clone.target = target
	return &clone
}

// Target returns the build target.
func (ctx *Context) Target() pipe.Target { return ctx.target }

// AutoSchedule returns the auto-schedule flag.
func (ctx *Context) AutoSchedule() bool { return ctx.autoSchedule }

// MachineParams returns the machine parameters.
func (ctx *Context) MachineParams() pipe.MachineParams { return ctx.machineParams }

// ValueTracker returns the tracker shared by every generator created from
// this context.
func (ctx *Context) ValueTracker() *ValueTracker { return ctx.tracker }
