// Package generator is the declaration-and-binding framework that lets a
// pipeline-construction routine expose typed build-time configuration
// (params), typed inputs and typed outputs as plain member state, then
// builds a concrete computation graph from them under a strict multi-phase
// protocol.
//
// A generator is a struct embedding Base whose factory declares its fields
// through the Builder returned by Base.Configure:
//
//	type Flip struct {
//		generator.Base
//		Offset *generator.TypedParam[int]
//		In     *generator.Input
//		Out    *generator.Output
//	}
//
//	func NewFlip(ctx *generator.Context) generator.Generator {
//		g := &Flip{}
//		b := g.Configure(ctx, g)
//		g.Offset = generator.DeclareParam(b, "offset", 0)
//		g.In = b.Input("input", generator.ScalarKind, generator.WithType(dtypes.Int32))
//		g.Out = b.Output("output", generator.FunctionKind, generator.WithType(dtypes.Int32), generator.WithDims(1))
//		return g
//	}
//
//	func (g *Flip) Generate() {
//		x := pipe.NewVar("x")
//		g.Out.Define([]pipe.Var{x}, pipe.Add(g.In.Expr(), pipe.Const(int32(g.Offset.Value()))))
//	}
//
//	func (g *Flip) Schedule() {}
//
// Callers then create instances by name (Register/Create), set parameters,
// bind inputs, advance through CallGenerate and CallSchedule, and read the
// finished graph with Pipeline.
//
// Errors are reported by panicking with UserError (caller mistakes) or
// InternalError (framework invariant violations); see package
// github.com/gomlx/exceptions for catching them as exceptions.
package generator

import (
	"k8s.io/klog/v2"

	"github.com/fish2000/halogen/pipe"
)

// Phase is where a generator instance stands in its lifecycle. Phases only
// ever advance; Created → GenerateCalled, skipping InputsSet, is the one
// legal skip (for generators that bind their inputs implicitly).
type Phase int

const (
	// Created is the initial phase.
	Created Phase = iota
	// InputsSet means inputs were supplied externally with BindInputs.
	InputsSet
	// GenerateCalled means the generate phase has started: params are
	// locked, outputs are writable.
	GenerateCalled
	// ScheduleCalled means the schedule phase has started; the instance is
	// final.
	ScheduleCalled
)

func (p Phase) String() string {
	switch p {
	case Created:
		return "Created"
	case InputsSet:
		return "InputsSet"
	case GenerateCalled:
		return "GenerateCalled"
	case ScheduleCalled:
		return "ScheduleCalled"
	}
	return "InvalidPhase"
}

// Generator is the interface satisfied by every generator type, by way of
// the embedded Base. Use BaseOf to reach the framework surface of an
// instance created by name.
type Generator interface {
	base() *Base
}

// Generating is the declarative generator style: Generate defines the
// declared outputs, and a separate Schedule pass (the Scheduling interface)
// schedules them.
type Generating interface {
	Generator
	Generate()
}

// Scheduling is the schedule pass of a Generating generator.
type Scheduling interface {
	Schedule()
}

// Building is the legacy one-step generator style: Build defines and
// schedules the pipeline in one call and returns its root node. Building
// generators may not declare Outputs.
type Building interface {
	Generator
	Build() *pipe.Func
}

// BaseOf returns the framework surface of a generator instance.
func BaseOf(g Generator) *Base { return g.base() }

// Base composes the framework state of one generator instance: its context,
// its ParamInfo, and its phase. Embed it by value and call Configure from
// the factory.
type Base struct {
	context   *Context
	instances *InstanceRegistry
	self      Generator

	registeredName string
	stubName       string

	phase Phase
	pi    *ParamInfo

	inputsSet   bool
	piRebuilt   bool
	pipelineFns []*pipe.Func

	targetParam        *TypedParam[pipe.Target]
	autoScheduleParam  *TypedParam[bool]
	machineParamsParam *TypedParam[pipe.MachineParams]
}

func (b *Base) base() *Base { return b }

// Configure initializes the instance from ctx and returns the Builder used
// to declare its fields. self must be the embedding generator value.
// Configure registers fields with the process-wide instance registry; use
// ConfigureWith for an isolated one.
func (b *Base) Configure(ctx *Context, self Generator) *Builder {
	return b.ConfigureWith(ctx, self, defaultInstances)
}

// ConfigureWith is Configure with an explicit instance registry.
func (b *Base) ConfigureWith(ctx *Context, self Generator, instances *InstanceRegistry) *Builder {
	if b.self != nil {
		internalErrorf("Configure called twice on the same generator")
	}
	if ctx == nil || self == nil || instances == nil {
		internalErrorf("Configure requires a context, a generator and an instance registry")
	}
	if self.base() != b {
		internalErrorf("Configure must be passed the generator embedding this Base")
	}
	b.context = ctx
	b.self = self
	b.instances = instances
	builder := &Builder{base: b, owner: self, registry: instances}
	b.targetParam = DeclareParam(builder, "target", ctx.Target())
	b.autoScheduleParam = DeclareParam(builder, "auto_schedule", ctx.AutoSchedule())
	b.machineParamsParam = DeclareParam(builder, "machine_params", ctx.MachineParams())
	return builder
}

// Context returns the context the instance was created with.
func (b *Base) Context() *Context { return b.context }

// Target returns the build target. Always readable.
func (b *Base) Target() pipe.Target { return b.targetParam.Value() }

// AutoSchedule returns the auto-schedule flag. Always readable.
func (b *Base) AutoSchedule() bool { return b.autoScheduleParam.Value() }

// MachineParams returns the machine parameters. Always readable.
func (b *Base) MachineParams() pipe.MachineParams { return b.machineParamsParam.Value() }

// CurrentPhase returns the instance's phase.
func (b *Base) CurrentPhase() Phase { return b.phase }

// SetNames sets the registered and stub names explicitly; Create fills them
// in from the registry when the factory leaves them empty.
func (b *Base) SetNames(registeredName, stubName string) {
	CheckValidName(registeredName, "generator")
	if stubName == "" {
		internalErrorf("SetNames requires a non-empty stub name")
	}
	if b.registeredName != "" || b.stubName != "" {
		internalErrorf("the generator names are already set")
	}
	b.registeredName = registeredName
	b.stubName = stubName
}

func (b *Base) noteCreated(name string) {
	if b.registeredName == "" {
		b.registeredName = name
		b.stubName = name
	}
}

// RegisteredName returns the name the generator was created under.
func (b *Base) RegisteredName() string { return b.registeredName }

// StubName returns the name used for emitted stubs.
func (b *Base) StubName() string { return b.stubName }

// ParamInfo returns the instance's field index, building it on first
// access.
func (b *Base) ParamInfo() *ParamInfo {
	if b.pi == nil {
		b.pi = newParamInfo(b)
	}
	return b.pi
}

func (b *Base) advancePhase(newPhase Phase) {
	legal := false
	switch newPhase {
	case InputsSet:
		legal = b.phase == Created
	case GenerateCalled:
		// Skipping InputsSet is fine: such generators bind their inputs
		// implicitly.
		legal = b.phase == Created || b.phase == InputsSet
	case ScheduleCalled:
		legal = b.phase == GenerateCalled
	}
	if !legal {
		internalErrorf("illegal phase transition %s -> %s for generator %q",
			b.phase, newPhase, b.registeredName)
	}
	klog.V(2).Infof("generator %q: phase %s -> %s", b.registeredName, b.phase, newPhase)
	b.phase = newPhase
}

func (b *Base) checkMinPhase(expected Phase) {
	if b.phase < expected {
		userErrorf("generator %q: this operation requires at least the %s phase (currently %s)",
			b.registeredName, expected, b.phase)
	}
}

func (b *Base) checkExactPhase(expected Phase) {
	if b.phase != expected {
		userErrorf("generator %q: this operation requires exactly the %s phase (currently %s)",
			b.registeredName, expected, b.phase)
	}
}

// SetParamValues sets configuration parameters from a name→string mapping.
// Unknown names fail; synthetic parameter names ("field.type", "field.dim",
// "field.size") are accepted.
func (b *Base) SetParamValues(values map[string]string) {
	pi := b.ParamInfo()
	for name, value := range values {
		p, found := pi.paramsByName[name]
		if !found {
			userErrorf("generator %q has no GeneratorParam named %q", b.registeredName, name)
		}
		p.SetFromString(value)
	}
}

// SetParamValue sets one configuration parameter from a typed value (or a
// string, which is parsed).
func (b *Base) SetParamValue(name string, value any) {
	p, found := b.ParamInfo().paramsByName[name]
	if !found {
		userErrorf("generator %q has no GeneratorParam named %q", b.registeredName, name)
	}
	p.setAny(value)
}

// BindInputs supplies input bindings as an ordered nested list: one inner
// list per declared input, in declaration order. It advances the phase to
// InputsSet and may be called at most once per instance.
func (b *Base) BindInputs(inputs [][]BoundValue) {
	b.advancePhase(InputsSet)
	if b.inputsSet {
		internalErrorf("BindInputs must be called at most once per generator instance")
	}
	pi := b.ParamInfo()
	if len(pi.legacyParams) > 0 {
		userErrorf("BindInputs cannot be used with generators carrying legacy parameters")
	}
	if len(inputs) != len(pi.inputs) {
		userErrorf("generator %q expected exactly %d inputs but got %d",
			b.registeredName, len(pi.inputs), len(inputs))
	}
	for i, in := range pi.inputs {
		in.setInputs(inputs[i])
	}
	b.inputsSet = true
}

// SetInputs supplies input bindings as typed values directly, one per
// declared input, in declaration order: a pipe.Expr, *pipe.Func or
// *pipe.Parameter per the input's kind (slices of those for array inputs),
// or a plain Go scalar for ScalarKind inputs.
func (b *Base) SetInputs(values ...any) {
	pi := b.ParamInfo()
	if len(values) != len(pi.inputs) {
		userErrorf("generator %q expected exactly %d inputs but got %d",
			b.registeredName, len(pi.inputs), len(values))
	}
	bound := make([][]BoundValue, len(values))
	for i, value := range values {
		bound[i] = canonicalBoundValues(pi.inputs[i], value)
	}
	b.BindInputs(bound)
}

func canonicalBoundValues(in *Input, value any) []BoundValue {
	checkSingular := func(kind Kind) {
		if in.IsArray() {
			userErrorf("the Input %q is an array and must be set with a slice", in.Name())
		}
		if in.Kind() != kind {
			userErrorf("the Input %q is of kind %s and cannot be set with a %s value",
				in.Name(), in.Kind(), kind)
		}
	}
	checkArray := func(kind Kind) {
		if !in.IsArray() {
			userErrorf("the Input %q is not an array and must not be set with a slice", in.Name())
		}
		if in.Kind() != kind {
			userErrorf("the Input %q is of kind %s and cannot be set with %s values",
				in.Name(), in.Kind(), kind)
		}
	}
	switch v := value.(type) {
	case BoundValue:
		checkSingular(v.Kind())
		return []BoundValue{v}
	case []BoundValue:
		checkArray(in.Kind())
		return v
	case pipe.Expr:
		checkSingular(ScalarKind)
		return []BoundValue{BindExpr(v)}
	case *pipe.Func:
		checkSingular(FunctionKind)
		return []BoundValue{BindFunc(v)}
	case *pipe.Parameter:
		checkSingular(BufferKind)
		return []BoundValue{BindParam(v)}
	case []pipe.Expr:
		checkArray(ScalarKind)
		bound := make([]BoundValue, len(v))
		for i, e := range v {
			bound[i] = BindExpr(e)
		}
		return bound
	case []*pipe.Func:
		checkArray(FunctionKind)
		bound := make([]BoundValue, len(v))
		for i, fn := range v {
			bound[i] = BindFunc(fn)
		}
		return bound
	case []*pipe.Parameter:
		checkArray(BufferKind)
		bound := make([]BoundValue, len(v))
		for i, p := range v {
			bound[i] = BindParam(p)
		}
		return bound
	case bool:
		checkSingular(ScalarKind)
		n := 0.0
		if v {
			n = 1.0
		}
		return []BoundValue{BindExpr(pipe.ConstOf(in.Type(), n))}
	case int:
		checkSingular(ScalarKind)
		return []BoundValue{BindExpr(pipe.ConstOf(in.Type(), float64(v)))}
	case int32:
		checkSingular(ScalarKind)
		return []BoundValue{BindExpr(pipe.ConstOf(in.Type(), float64(v)))}
	case int64:
		checkSingular(ScalarKind)
		return []BoundValue{BindExpr(pipe.ConstOf(in.Type(), float64(v)))}
	case float32:
		checkSingular(ScalarKind)
		return []BoundValue{BindExpr(pipe.ConstOf(in.Type(), float64(v)))}
	case float64:
		checkSingular(ScalarKind)
		return []BoundValue{BindExpr(pipe.ConstOf(in.Type(), v))}
	}
	userErrorf("the Input %q cannot be set from a value of type %T", in.Name(), value)
	return nil
}

// trackParameterValues runs the context's ValueTracker over the constraint
// tuples of every buffer-like field, inputs always and outputs on request.
func (b *Base) trackParameterValues(includeOutputs bool) {
	pi := b.ParamInfo()
	tracker := b.context.ValueTracker()
	for _, in := range pi.inputs {
		if in.Kind() != BufferKind {
			continue
		}
		if len(in.parameters) == 0 {
			internalErrorf("the Input %q has no backing parameters to track", in.Name())
		}
		for _, p := range in.parameters {
			// Track under the parameter's own name, not the input's: array
			// elements each have their own history.
			tracker.TrackValues(p.Name(), p.Constraints())
		}
	}
	if !includeOutputs {
		return
	}
	for _, out := range pi.outputs {
		// Both Function- and Buffer-kind outputs surface as buffer
		// parameters at the pipeline boundary.
		funcs := out.Funcs()
		if len(funcs) == 0 {
			internalErrorf("the Output %q has no nodes to track", out.Name())
		}
		for _, fn := range funcs {
			if !fn.Defined() {
				userErrorf("the Output %q is not fully defined", out.Name())
			}
			p := fn.OutputBuffer()
			tracker.TrackValues(p.Name(), p.Constraints())
		}
	}
}

func (b *Base) bindPendingInputs() {
	if b.inputsSet {
		return
	}
	for _, in := range b.ParamInfo().inputs {
		in.initInternals()
	}
	b.inputsSet = true
}

func (b *Base) preGenerate() {
	b.advancePhase(GenerateCalled)
	pi := b.ParamInfo()
	if len(pi.legacyParams) > 0 {
		userErrorf("generator %q mixes legacy parameters with the Generate style", b.registeredName)
	}
	if len(pi.outputs) == 0 {
		userErrorf("generator %q must declare at least one Output to use Generate", b.registeredName)
	}
	if !b.Target().Defined() {
		userErrorf("the target of generator %q has not been set", b.registeredName)
	}
	b.bindPendingInputs()
	for _, out := range pi.outputs {
		out.initInternals()
	}
	b.trackParameterValues(false)
}

func (b *Base) postGenerate() {
	b.verifyOutputs()
	b.trackParameterValues(true)
}

func (b *Base) preSchedule() {
	b.advancePhase(ScheduleCalled)
	b.trackParameterValues(true)
}

func (b *Base) postSchedule() {
	b.trackParameterValues(true)
}

func (b *Base) preBuild() {
	b.advancePhase(GenerateCalled)
	b.advancePhase(ScheduleCalled)
	pi := b.ParamInfo()
	if len(pi.outputs) > 0 {
		userErrorf("generator %q mixes declared Outputs with the legacy Build style", b.registeredName)
	}
	if !b.Target().Defined() {
		userErrorf("the target of generator %q has not been set", b.registeredName)
	}
	b.bindPendingInputs()
	b.trackParameterValues(false)
}

func (b *Base) postBuild() {
	b.trackParameterValues(true)
}

// CallGenerate runs the generate phase: it advances the phase, lazily binds
// any not-yet-bound inputs, initializes every output, runs the generator's
// Generate method, and tracks the constraint values it produced.
func (b *Base) CallGenerate() {
	g, ok := b.self.(Generating)
	if !ok {
		userErrorf("generator %q does not implement Generate", b.registeredName)
	}
	if _, legacy := b.self.(Building); legacy {
		userErrorf("generator %q implements both Generate and Build; pick one style", b.registeredName)
	}
	b.preGenerate()
	g.Generate()
	b.postGenerate()
}

// CallSchedule runs the schedule phase of a Generating generator.
func (b *Base) CallSchedule() {
	s, ok := b.self.(Scheduling)
	if !ok {
		userErrorf("generator %q does not implement Schedule", b.registeredName)
	}
	b.preSchedule()
	s.Schedule()
	b.postSchedule()
}

// BuildPipeline runs a legacy Building generator, advancing through the
// generate and schedule phases in one step, and returns the pipeline's root
// node.
func (b *Base) BuildPipeline() *pipe.Func {
	g, ok := b.self.(Building)
	if !ok {
		userErrorf("generator %q does not implement Build", b.registeredName)
	}
	if _, generating := b.self.(Generating); generating {
		userErrorf("generator %q implements both Generate and Build; pick one style", b.registeredName)
	}
	b.preBuild()
	fn := g.Build()
	b.postBuild()
	if fn == nil || !fn.Defined() {
		userErrorf("generator %q returned an undefined pipeline from Build", b.registeredName)
	}
	// Legacy builds may mutate the field layout through their legacy
	// parameters; discard and rebuild the ParamInfo, at most once.
	if len(b.ParamInfo().legacyParams) > 0 && !b.piRebuilt {
		b.pi = nil
		b.piRebuilt = true
	}
	b.pipelineFns = []*pipe.Func{fn}
	return fn
}

// Pipeline returns the finished graph as the flattened output list: each
// non-array output contributes one node, each array output its full element
// list, in output-declaration order. External tooling relies on this
// flattening to handle an unknown generator's outputs generically.
func (b *Base) Pipeline() []*pipe.Func {
	b.checkMinPhase(GenerateCalled)
	if b.pipelineFns != nil {
		return b.pipelineFns
	}
	if len(b.ParamInfo().outputs) == 0 {
		userErrorf("generator %q has no declared Outputs to assemble a pipeline from", b.registeredName)
	}
	b.pipelineFns = b.verifyOutputs()
	return b.pipelineFns
}

// verifyOutputs checks every output node against the declared shape and
// returns the flattened node list.
func (b *Base) verifyOutputs() []*pipe.Func {
	pi := b.ParamInfo()
	var funcs []*pipe.Func
	for _, out := range pi.outputs {
		for _, fn := range out.Funcs() {
			if !fn.Defined() {
				userErrorf("the Output node %q was not defined", fn.Name())
			}
			if out.DimsDefined() && fn.Dimensions() != out.Dims() {
				userErrorf("the Output %q requires dimensions=%d but was defined with dimensions=%d",
					fn.Name(), out.Dims(), fn.Dimensions())
			}
			if out.TypesDefined() {
				if fn.Outputs() != len(out.types) {
					userErrorf("the Output %q requires a tuple of size %d but was defined as a tuple of size %d",
						fn.Name(), len(out.types), fn.Outputs())
				}
				for i, actual := range fn.OutputTypes() {
					if expected := out.types[i]; expected != actual {
						userErrorf("the Output %q requires type %s but was defined as type %s",
							fn.Name(), expected, actual)
					}
				}
			}
			funcs = append(funcs, fn)
		}
	}
	return funcs
}

// Output returns the single node of the named non-array output.
func (b *Base) Output(name string) *pipe.Func {
	b.checkMinPhase(GenerateCalled)
	out := b.findOutput(name)
	if out.IsArray() {
		userErrorf("the Output %q is an array and must be accessed via ArrayOutput", name)
	}
	fn := out.Func()
	if !fn.Defined() {
		userErrorf("the Output %q was not defined", name)
	}
	return fn
}

// ArrayOutput returns the element nodes of the named array output.
func (b *Base) ArrayOutput(name string) []*pipe.Func {
	b.checkMinPhase(GenerateCalled)
	out := b.findOutput(name)
	funcs := out.Funcs()
	for _, fn := range funcs {
		if !fn.Defined() {
			userErrorf("the Output %q was not fully defined", name)
		}
	}
	return funcs
}

// There usually are very few outputs, so a linear search is fine.
func (b *Base) findOutput(name string) *Output {
	for _, out := range b.ParamInfo().outputs {
		if out.Name() == name {
			return out
		}
	}
	userErrorf("generator %q has no Output named %q", b.registeredName, name)
	return nil
}

// ParamNames returns the user-declared parameter names, in declaration
// order, with synthetic and context parameters filtered out.
func (b *Base) ParamNames() []string {
	var names []string
	for _, p := range b.ParamInfo().params {
		if p.IsSynthetic() || alwaysReadable(p.Name()) {
			continue
		}
		names = append(names, p.Name())
	}
	return names
}

// InputNames returns the declared input names in declaration order.
func (b *Base) InputNames() []string {
	var names []string
	for _, in := range b.ParamInfo().inputs {
		names = append(names, in.Name())
	}
	return names
}

// OutputNames returns the declared output names in declaration order.
func (b *Base) OutputNames() []string {
	var names []string
	for _, out := range b.ParamInfo().outputs {
		names = append(names, out.Name())
	}
	return names
}

// Finalize removes every field the instance registered from its instance
// registry. Call it when the instance will not be used again.
func (b *Base) Finalize() {
	if b.instances == nil {
		return
	}
	for _, category := range []FieldCategory{GeneratorParamField, InputField, OutputField, LegacyParamField} {
		for _, field := range b.instances.InstancesOf(b.self, category) {
			b.instances.Unregister(field)
		}
	}
}
