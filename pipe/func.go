package pipe

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Func is a named node of the computation graph. A Func starts undefined and
// is defined exactly once with a list of dimension arguments and one or more
// (tuple) output values.
type Func struct {
	name      string
	args      []Var
	values    []Expr
	estimates []DimEstimate

	outputBuffer *Parameter
}

// DimEstimate is a per-dimension (min, extent) hint attached to a Func, used
// by scheduling later on.
type DimEstimate struct {
	Dim         Var
	Min, Extent Expr
}

// NewFunc returns a new undefined node with the given name.
func NewFunc(name string) *Func {
	if name == "" {
		exceptions.Panicf("pipe: a Func requires a non-empty name")
	}
	return &Func{name: name}
}

// Name returns the node name.
func (f *Func) Name() string { return f.name }

// Defined reports whether the node has been given a definition.
func (f *Func) Defined() bool { return len(f.values) > 0 }

// Define gives the node its definition. Defining a node twice panics.
func (f *Func) Define(args []Var, values ...Expr) {
	if f.Defined() {
		exceptions.Panicf("pipe: Func %q is already defined", f.name)
	}
	if len(values) == 0 {
		exceptions.Panicf("pipe: Func %q requires at least one value", f.name)
	}
	for i, value := range values {
		if !value.Defined() {
			exceptions.Panicf("pipe: value #%d in the definition of Func %q is undefined", i, f.name)
		}
	}
	f.args = append([]Var(nil), args...)
	f.values = append([]Expr(nil), values...)
}

// Dimensions returns the number of dimension arguments. It panics on an
// undefined node.
func (f *Func) Dimensions() int {
	f.assertDefined()
	return len(f.args)
}

// Args returns the dimension arguments of the node.
func (f *Func) Args() []Var {
	f.assertDefined()
	return f.args
}

// Outputs returns the number of output values (the tuple size).
func (f *Func) Outputs() int {
	f.assertDefined()
	return len(f.values)
}

// OutputTypes returns the element type of each output value.
func (f *Func) OutputTypes() []dtypes.DType {
	f.assertDefined()
	types := make([]dtypes.DType, len(f.values))
	for i, value := range f.values {
		types[i] = value.DType()
	}
	return types
}

// Values returns the output values of the node.
func (f *Func) Values() []Expr {
	f.assertDefined()
	return f.values
}

// At returns an expression reading the node at the given index arguments.
func (f *Func) At(args ...Expr) Expr {
	return CallFunc(f, args...)
}

// Estimate attaches a (min, extent) hint for the dimension v.
func (f *Func) Estimate(v Var, min, extent Expr) {
	f.estimates = append(f.estimates, DimEstimate{Dim: v, Min: min, Extent: extent})
}

// Estimates returns the hints attached so far, in attachment order.
func (f *Func) Estimates() []DimEstimate { return f.estimates }

// ArgIndex returns the position of v among the node's dimension arguments,
// or -1 if v is not an argument.
func (f *Func) ArgIndex(v Var) int {
	for i, arg := range f.args {
		if arg.Name() == v.Name() {
			return i
		}
	}
	return -1
}

// OutputBuffer returns the buffer parameter backing the node's single output,
// creating it on first use. It panics on undefined or multi-output nodes.
func (f *Func) OutputBuffer() *Parameter {
	f.assertDefined()
	if len(f.values) != 1 {
		exceptions.Panicf("pipe: Func %q produces a tuple of %d values and has no single output buffer",
			f.name, len(f.values))
	}
	if f.outputBuffer == nil {
		f.outputBuffer = NewBufferParameter(f.values[0].DType(), len(f.args), f.name)
	}
	return f.outputBuffer
}

// EvalAt evaluates the node's first output value with the dimension
// arguments (and any free variables) bound by env.
func (f *Func) EvalAt(env map[string]float64) float64 {
	f.assertDefined()
	return f.values[0].Eval(env)
}

func (f *Func) assertDefined() {
	if !f.Defined() {
		exceptions.Panicf("pipe: Func %q is undefined", f.name)
	}
}
