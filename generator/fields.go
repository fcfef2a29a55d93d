package generator

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fish2000/halogen/pipe"
)

// Kind classifies what a declared input or output carries: a scalar
// expression, a graph node (Func), or a buffer parameter.
type Kind int

const (
	// ScalarKind fields bind scalar expressions. Outputs never take it.
	ScalarKind Kind = iota
	// FunctionKind fields bind graph nodes.
	FunctionKind
	// BufferKind fields bind buffer parameters.
	BufferKind
)

func (k Kind) String() string {
	switch k {
	case ScalarKind:
		return "Scalar"
	case FunctionKind:
		return "Function"
	case BufferKind:
		return "Buffer"
	}
	return "InvalidKind"
}

// BoundValue is one already-constructed value supplied for an input: a
// scalar expression, a graph node, or a buffer parameter, depending on the
// input's kind.
type BoundValue struct {
	kind  Kind
	expr  pipe.Expr
	fn    *pipe.Func
	param *pipe.Parameter
}

// BindExpr wraps a scalar expression for binding.
func BindExpr(e pipe.Expr) BoundValue { return BoundValue{kind: ScalarKind, expr: e} }

// BindFunc wraps a graph node for binding.
func BindFunc(f *pipe.Func) BoundValue { return BoundValue{kind: FunctionKind, fn: f} }

// BindParam wraps a buffer parameter for binding.
func BindParam(p *pipe.Parameter) BoundValue { return BoundValue{kind: BufferKind, param: p} }

// Kind reports what the value carries.
func (v BoundValue) Kind() Kind { return v.kind }

// ioField is the state shared by Input and Output: name, kind, arity and the
// bound values. Array cardinality, dimension count and element types each
// start undefined and transition at most once to a fixed value.
type ioField struct {
	name      string
	kind      Kind
	array     bool
	arraySize int // -1 while undefined
	dims      int // -1 while undefined
	types     []dtypes.DType

	exprs []pipe.Expr
	funcs []*pipe.Func

	owner    *Base
	isOutput bool
}

// Name returns the field name.
func (f *ioField) Name() string { return f.name }

// Kind returns the field kind.
func (f *ioField) Kind() Kind { return f.kind }

// IsArray reports whether the field was declared as an array.
func (f *ioField) IsArray() bool { return f.array }

// ArraySizeDefined reports whether the array cardinality has been fixed.
func (f *ioField) ArraySizeDefined() bool { return f.arraySize != -1 }

// ArraySize returns the array cardinality, failing if it is still
// undefined.
func (f *ioField) ArraySize() int {
	if !f.ArraySizeDefined() {
		userErrorf("the array size is unspecified for %s %q; set it explicitly via Resize or the %q GeneratorParam",
			f.ioLabel(), f.name, f.name+".size")
	}
	return f.arraySize
}

// TypesDefined reports whether the element types have been fixed.
func (f *ioField) TypesDefined() bool { return len(f.types) > 0 }

// Types returns the element types. If the types were never fixed but exactly
// one bound node is defined, the field adopts that node's types instead of
// failing.
func (f *ioField) Types() []dtypes.DType {
	if !f.TypesDefined() {
		if len(f.funcs) == 1 && f.funcs[0].Defined() {
			f.checkMatchingTypes(f.funcs[0].OutputTypes())
		}
	}
	if !f.TypesDefined() {
		userErrorf("the type is not defined for %s %q; you may need to set the %q GeneratorParam",
			f.ioLabel(), f.name, f.name+".type")
	}
	return f.types
}

// Type returns the single element type; the field must not be tuple-valued.
func (f *ioField) Type() dtypes.DType {
	types := f.Types()
	if len(types) != 1 {
		internalErrorf("expected a single type for %q, saw %d", f.name, len(types))
	}
	return types[0]
}

// DimsDefined reports whether the dimension count has been fixed.
func (f *ioField) DimsDefined() bool { return f.dims != -1 }

// Dims returns the dimension count, with the same single-bound-node
// inference relaxation as Types.
func (f *ioField) Dims() int {
	if !f.DimsDefined() {
		if len(f.funcs) == 1 && f.funcs[0].Defined() {
			f.checkMatchingDims(f.funcs[0].Dimensions())
		}
	}
	if !f.DimsDefined() {
		userErrorf("the dimensions are not defined for %s %q; you may need to set the %q GeneratorParam",
			f.ioLabel(), f.name, f.name+".dim")
	}
	return f.dims
}

// ArrayName returns the name of the i-th element: the field name itself for
// non-arrays, else "name_i".
func (f *ioField) ArrayName(i int) string {
	if f.array {
		return fmt.Sprintf("%s_%d", f.name, i)
	}
	return f.name
}

func (f *ioField) ioLabel() string {
	if f.isOutput {
		return "Output"
	}
	return "Input"
}

// boundFuncs returns the bound graph nodes, asserting the binding is
// complete and of the non-scalar flavor.
func (f *ioField) boundFuncs() []*pipe.Func {
	if len(f.funcs) != f.ArraySize() || len(f.exprs) != 0 {
		internalErrorf("field %q has %d bound nodes, want %d", f.name, len(f.funcs), f.arraySize)
	}
	return f.funcs
}

// boundExprs returns the bound scalar expressions, asserting the binding is
// complete and of the scalar flavor.
func (f *ioField) boundExprs() []pipe.Expr {
	if len(f.exprs) != f.ArraySize() || len(f.funcs) != 0 {
		internalErrorf("field %q has %d bound expressions, want %d", f.name, len(f.exprs), f.arraySize)
	}
	return f.exprs
}

// checkMatchingTypes fixes the element types on first sight and fails on any
// later disagreement.
func (f *ioField) checkMatchingTypes(types []dtypes.DType) {
	if f.TypesDefined() {
		if len(f.types) != len(types) {
			userErrorf("type mismatch for %q: expected %d types but saw %d", f.name, len(f.types), len(types))
		}
		for i := range types {
			if f.types[i] != types[i] {
				userErrorf("type mismatch for %q: expected %s saw %s", f.name, f.types[i], types[i])
			}
		}
		return
	}
	f.types = append([]dtypes.DType(nil), types...)
}

// checkMatchingDims fixes the dimension count on first sight and fails on
// any later disagreement.
func (f *ioField) checkMatchingDims(dims int) {
	if dims < 0 {
		internalErrorf("negative dimension count %d for %q", dims, f.name)
	}
	if f.DimsDefined() {
		if f.dims != dims {
			userErrorf("dimensions mismatch for %q: expected %d saw %d", f.name, f.dims, dims)
		}
		return
	}
	f.dims = dims
}

// checkMatchingArraySize fixes the array cardinality on first sight and
// fails on any later disagreement.
func (f *ioField) checkMatchingArraySize(size int) {
	if f.ArraySizeDefined() {
		if f.arraySize != size {
			userErrorf("array size mismatch for %q: expected %d saw %d", f.name, f.arraySize, size)
		}
		return
	}
	f.arraySize = size
}

// verifyInternals checks every bound value against the fixed type and
// dimension properties. It runs after every bind.
func (f *ioField) verifyInternals() {
	if f.dims < 0 {
		userErrorf("%s %q must have a non-negative dimension count", f.ioLabel(), f.name)
	}
	if f.kind != ScalarKind {
		for _, fn := range f.boundFuncs() {
			if !fn.Defined() {
				userErrorf("%s %q is not defined", f.ioLabel(), f.name)
			}
			if fn.Dimensions() != f.Dims() {
				userErrorf("expected dimensions %d but got %d for %q", f.Dims(), fn.Dimensions(), f.name)
			}
			if fn.Outputs() != 1 {
				userErrorf("expected a single output but got %d for %q", fn.Outputs(), f.name)
			}
			if fn.OutputTypes()[0] != f.Type() {
				userErrorf("expected type %s but got %s for %q", f.Type(), fn.OutputTypes()[0], f.name)
			}
		}
		return
	}
	for _, e := range f.boundExprs() {
		if !e.Defined() {
			userErrorf("%s %q is not defined", f.ioLabel(), f.name)
		}
		if e.DType() != f.Type() {
			userErrorf("expected type %s but got %s for %q", f.Type(), e.DType(), f.name)
		}
	}
}

func typeListString(types []dtypes.DType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}

// makeParamFunc wraps a buffer parameter in a graph node that reads it
// argument-for-argument (identity passthrough).
func makeParamFunc(p *pipe.Parameter, name string) *pipe.Func {
	fn := pipe.NewFunc(name + "_im")
	args := make([]pipe.Var, p.Dimensions())
	argExprs := make([]pipe.Expr, p.Dimensions())
	for i := range args {
		v := pipe.ImplicitVar(i)
		args[i] = v
		argExprs[i] = v.Expr()
	}
	fn.Define(args, pipe.CallParam(p, argExprs...))
	return fn
}

// Input is a declared, typed, optionally-array piece of data flowing into
// the pipeline. Inputs bind either lazily (InitInternals, during the
// generate phase) or from externally supplied values (the InputsSet phase).
type Input struct {
	ioField
	parameters []*pipe.Parameter
}

// Parameter returns the buffer/scalar parameter backing a non-array input.
func (in *Input) Parameter() *pipe.Parameter {
	if in.IsArray() {
		userErrorf("cannot call Parameter on array Input %q; index Parameters instead", in.name)
	}
	return in.parameters[0]
}

// Parameters returns the parameters backing each element of the input.
func (in *Input) Parameters() []*pipe.Parameter { return in.parameters }

// Exprs returns the bound scalar expressions of a ScalarKind input.
func (in *Input) Exprs() []pipe.Expr { return in.boundExprs() }

// Expr returns the single bound scalar expression of a non-array ScalarKind
// input.
func (in *Input) Expr() pipe.Expr {
	exprs := in.boundExprs()
	if in.IsArray() {
		userErrorf("cannot call Expr on array Input %q; index Exprs instead", in.name)
	}
	return exprs[0]
}

// Funcs returns the bound graph nodes of a Function- or Buffer-kind input.
func (in *Input) Funcs() []*pipe.Func { return in.boundFuncs() }

// Func returns the single bound node of a non-array input.
func (in *Input) Func() *pipe.Func {
	funcs := in.boundFuncs()
	if in.IsArray() {
		userErrorf("cannot call Func on array Input %q; index Funcs instead", in.name)
	}
	return funcs[0]
}

// At returns an expression reading the input's single bound node at the
// given index arguments.
func (in *Input) At(args ...pipe.Expr) pipe.Expr {
	return in.Func().At(args...)
}

// initInternals binds the input lazily: one fresh parameter per element,
// wrapped per the input's kind. Requires arity, types and dims to be
// resolvable.
func (in *Input) initInternals() {
	// Fail early if any of the three properties is still undefined.
	size := in.ArraySize()
	_ = in.Types()
	_ = in.Dims()

	in.parameters = in.parameters[:0]
	in.exprs = nil
	in.funcs = nil
	for i := 0; i < size; i++ {
		name := in.ArrayName(i)
		if in.kind != ScalarKind {
			p := pipe.NewBufferParameter(in.Type(), in.Dims(), name)
			in.parameters = append(in.parameters, p)
			in.funcs = append(in.funcs, makeParamFunc(p, name))
		} else {
			p := pipe.NewScalarParameter(in.Type(), name)
			in.parameters = append(in.parameters, p)
			in.exprs = append(in.exprs, pipe.Variable(in.Type(), name, p))
		}
	}
	in.verifyInternals()
}

// setInputs binds externally supplied values, inferring (or checking) the
// arity, types and dims from them.
func (in *Input) setInputs(values []BoundValue) {
	in.owner.checkExactPhase(InputsSet)
	in.parameters = in.parameters[:0]
	in.exprs = nil
	in.funcs = nil
	in.checkMatchingArraySize(len(values))
	for i, value := range values {
		if value.kind != in.kind {
			userErrorf("a value bound to Input %q is not of the expected kind %s", in.name, in.kind)
		}
		switch in.kind {
		case FunctionKind:
			fn := value.fn
			in.checkMatchingTypes(fn.OutputTypes())
			in.checkMatchingDims(fn.Dimensions())
			in.funcs = append(in.funcs, fn)
			in.parameters = append(in.parameters,
				pipe.NewBufferParameter(fn.OutputTypes()[0], fn.Dimensions(), in.ArrayName(i)))
		case BufferKind:
			p := value.param
			in.checkMatchingTypes([]dtypes.DType{p.DType()})
			in.checkMatchingDims(p.Dimensions())
			in.funcs = append(in.funcs, makeParamFunc(p, in.name))
			in.parameters = append(in.parameters, p)
		case ScalarKind:
			e := value.expr
			in.checkMatchingTypes([]dtypes.DType{e.DType()})
			in.checkMatchingDims(0)
			in.exprs = append(in.exprs, e)
			in.parameters = append(in.parameters, pipe.NewScalarParameter(e.DType(), in.ArrayName(i)))
		}
	}
	in.verifyInternals()
}

// verifyInternals extends the shared checks with the parameter-per-element
// invariant.
func (in *Input) verifyInternals() {
	in.ioField.verifyInternals()
	expected := len(in.exprs)
	if in.kind != ScalarKind {
		expected = len(in.funcs)
	}
	if len(in.parameters) != expected {
		userErrorf("expected %d parameters, saw %d for %q", expected, len(in.parameters), in.name)
	}
}

// SetEstimate attaches a per-dimension (min, extent) scheduling hint to
// every bound node and mirrors it into the backing buffer parameters. The
// named dimension must exist among each node's declared arguments.
func (in *Input) SetEstimate(v pipe.Var, min, extent pipe.Expr) {
	if len(in.exprs) != 0 || len(in.funcs) == 0 || len(in.parameters) != len(in.funcs) {
		internalErrorf("SetEstimate on Input %q requires bound graph nodes", in.name)
	}
	for i, fn := range in.funcs {
		dim := fn.ArgIndex(v)
		if dim < 0 {
			internalErrorf("dimension %q is not among the arguments of %q", v.Name(), fn.Name())
		}
		fn.Estimate(v, min, extent)
		in.parameters[i].SetMinEstimate(dim, min)
		in.parameters[i].SetExtentEstimate(dim, extent)
	}
}

// Output is a declared, typed, optionally-array piece of data produced by
// the pipeline. Outputs are Function- or Buffer-kind, never Scalar, and are
// writable only during the generate phase.
type Output struct {
	ioField
}

// Funcs returns the output's graph nodes, one per element.
func (out *Output) Funcs() []*pipe.Func { return out.boundFuncs() }

// Func returns the single node of a non-array output.
func (out *Output) Func() *pipe.Func {
	funcs := out.boundFuncs()
	if out.IsArray() {
		userErrorf("cannot call Func on array Output %q; index Funcs instead", out.name)
	}
	return funcs[0]
}

// Define gives the non-array output its definition. Outputs can only be
// defined during the generate phase.
func (out *Output) Define(args []pipe.Var, values ...pipe.Expr) {
	out.checkWritable()
	out.Func().Define(args, values...)
}

// DefineAt gives the i-th element of an array output its definition.
func (out *Output) DefineAt(i int, args []pipe.Var, values ...pipe.Expr) {
	out.checkWritable()
	funcs := out.boundFuncs()
	if i < 0 || i >= len(funcs) {
		userErrorf("Output %q has %d elements, index %d is out of range", out.name, len(funcs), i)
	}
	funcs[i].Define(args, values...)
}

// Resize fixes the cardinality of an array output whose size was left
// undefined, creating its nodes.
func (out *Output) Resize(size int) {
	if !out.array {
		internalErrorf("Resize called on non-array Output %q", out.name)
	}
	if out.ArraySizeDefined() {
		internalErrorf("Resize may only be called on Output %q while its size is undefined", out.name)
	}
	out.arraySize = size
	out.initInternals()
}

func (out *Output) checkWritable() {
	if out.owner == nil || out.owner.phase != GenerateCalled {
		userErrorf("the Output %q can only be defined during the generate phase", out.name)
	}
}

// initInternals creates one fresh undefined node per element, if the
// cardinality is known.
func (out *Output) initInternals() {
	out.exprs = nil
	out.funcs = nil
	if out.ArraySizeDefined() {
		for i := 0; i < out.arraySize; i++ {
			out.funcs = append(out.funcs, pipe.NewFunc(out.ArrayName(i)))
		}
	}
}
