package generator

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/fish2000/halogen/pipe"
)

// testGen is a configurable Generate-style generator for tests: declare
// fields on the Builder returned by ConfigureWith, then drive the body via
// the generate and schedule hooks.
type testGen struct {
	Base
	generate func(g *testGen)
	schedule func(g *testGen)
}

func (g *testGen) Generate() {
	if g.generate != nil {
		g.generate(g)
	}
}

func (g *testGen) Schedule() {
	if g.schedule != nil {
		g.schedule(g)
	}
}

// legacyGen is a configurable Build-style generator.
type legacyGen struct {
	Base
	build func(g *legacyGen) *pipe.Func
}

func (g *legacyGen) Build() *pipe.Func { return g.build(g) }

func TestPhaseTransitions(t *testing.T) {
	require.Equal(t, "Created", Created.String())
	require.Equal(t, "InputsSet", InputsSet.String())
	require.Equal(t, "GenerateCalled", GenerateCalled.String())
	require.Equal(t, "ScheduleCalled", ScheduleCalled.String())

	g, b := newTestBuilder(t)
	out := b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	g.generate = func(g *testGen) { out.Define(nil, pipe.Const(int32(0))) }

	require.Equal(t, Created, g.CurrentPhase())
	g.CallGenerate()
	require.Equal(t, GenerateCalled, g.CurrentPhase())
	g.CallSchedule()
	require.Equal(t, ScheduleCalled, g.CurrentPhase())

	// Phases never regress or repeat.
	catchInternalError(t, func() { g.CallGenerate() })
	catchInternalError(t, func() { g.CallSchedule() })
	catchInternalError(t, func() { g.BindInputs(nil) })
}

func TestScheduleRequiresGenerate(t *testing.T) {
	g, b := newTestBuilder(t)
	b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	catchInternalError(t, func() { g.CallSchedule() })
}

func TestBindInputsOnce(t *testing.T) {
	g, b := newTestBuilder(t)
	b.Input("input", ScalarKind, WithType(dtypes.Int32))
	g.SetInputs(1)
	// A second bind is illegal, already at the phase level.
	catchInternalError(t, func() { g.SetInputs(2) })
}

func TestEndToEnd(t *testing.T) {
	registry := NewRegistry()
	instances := NewInstanceRegistry()
	registry.Register("brighten", func(ctx *Context) Generator {
		g := &testGen{}
		b := g.ConfigureWith(ctx, g, instances)
		offset := DeclareParam(b, "offset", 0)
		in := b.Input("input", ScalarKind, WithType(dtypes.Int32))
		out := b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(1))
		g.generate = func(g *testGen) {
			x := pipe.NewVar("x")
			out.Define([]pipe.Var{x},
				pipe.Add(in.Expr(), pipe.Const(int32(offset.Value()))))
		}
		return g
	})

	g := registry.Create("brighten", NewContext(pipe.HostTarget()))
	base := BaseOf(g)
	require.Equal(t, "brighten", base.RegisteredName())
	require.Equal(t, []string{"offset"}, base.ParamNames())
	require.Equal(t, []string{"input"}, base.InputNames())
	require.Equal(t, []string{"output"}, base.OutputNames())

	base.SetParamValues(map[string]string{"offset": "1"})
	base.SetInputs(41)
	base.CallGenerate()
	base.CallSchedule()

	pipeline := base.Pipeline()
	require.Len(t, pipeline, 1)
	require.Equal(t, 42.0, pipeline[0].EvalAt(map[string]float64{"x": 0}))
	require.Equal(t, 42.0, pipeline[0].EvalAt(map[string]float64{"x": 17}))
	base.Finalize()
}

func TestGenerateRequiresOutputs(t *testing.T) {
	g, b := newTestBuilder(t)
	b.Input("input", ScalarKind, WithType(dtypes.Int32))
	g.SetInputs(1)
	e := catchUserError(t, func() { g.CallGenerate() })
	require.Contains(t, e.Error(), "at least one Output")
}

func TestGenerateRequiresTarget(t *testing.T) {
	g := &testGen{}
	b := g.ConfigureWith(NewContext(pipe.Target{}), g, NewInstanceRegistry())
	out := b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	g.generate = func(g *testGen) { out.Define(nil, pipe.Const(int32(0))) }
	e := catchUserError(t, func() { g.CallGenerate() })
	require.Contains(t, e.Error(), "target")
}

func TestGenerateStyleRequired(t *testing.T) {
	g := &legacyGen{}
	g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	e := catchUserError(t, func() { g.CallGenerate() })
	require.Contains(t, e.Error(), "does not implement Generate")

	h := &testGen{}
	h.ConfigureWith(NewContext(pipe.HostTarget()), h, NewInstanceRegistry())
	e = catchUserError(t, func() { h.BuildPipeline() })
	require.Contains(t, e.Error(), "does not implement Build")
}

func TestLegacyBuildStyle(t *testing.T) {
	g := &legacyGen{}
	b := g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	frame := b.LegacyParam(pipe.NewBufferParameter(dtypes.Uint8, 2, "frame"))
	g.build = func(g *legacyGen) *pipe.Func {
		x, y := pipe.NewVar("x"), pipe.NewVar("y")
		fn := pipe.NewFunc("copied")
		fn.Define([]pipe.Var{x, y}, pipe.CallParam(frame, x.Expr(), y.Expr()))
		return fn
	}
	fn := g.BuildPipeline()
	require.Equal(t, ScheduleCalled, g.CurrentPhase())
	require.Equal(t, "copied", fn.Name())
	require.Equal(t, []*pipe.Func{fn}, g.Pipeline())
	require.Equal(t, []*pipe.Parameter{frame}, g.ParamInfo().LegacyParams())
}

func TestLegacyBuildRejectsOutputs(t *testing.T) {
	g := &legacyGen{}
	b := g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	g.build = func(g *legacyGen) *pipe.Func { return nil }
	e := catchUserError(t, func() { g.BuildPipeline() })
	require.Contains(t, e.Error(), "legacy Build style")
}

func TestLegacyBuildRejectsBindInputs(t *testing.T) {
	g := &legacyGen{}
	b := g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	b.LegacyParam(pipe.NewBufferParameter(dtypes.Uint8, 2, "frame"))
	e := catchUserError(t, func() { g.BindInputs(nil) })
	require.Contains(t, e.Error(), "legacy parameters")
}

func TestPipelineFlattening(t *testing.T) {
	g, b := newTestBuilder(t)
	single := b.Output("sum", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	arr := b.OutputArray("terms", FunctionKind, WithType(dtypes.Int32), WithDims(0), WithArraySize(2))
	g.generate = func(g *testGen) {
		single.Define(nil, pipe.Const(int32(3)))
		arr.DefineAt(0, nil, pipe.Const(int32(1)))
		arr.DefineAt(1, nil, pipe.Const(int32(2)))
	}
	g.CallGenerate()
	pipeline := g.Pipeline()
	require.Len(t, pipeline, 3)
	require.Equal(t, "sum", pipeline[0].Name())
	require.Equal(t, "terms_0", pipeline[1].Name())
	require.Equal(t, "terms_1", pipeline[2].Name())
	// The flattened list is cached.
	require.Equal(t, &pipeline[0], &g.Pipeline()[0])
}

func TestPipelineVerifiesDeclaredShape(t *testing.T) {
	g, b := newTestBuilder(t)
	out := b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(2))
	g.generate = func(g *testGen) {
		x := pipe.NewVar("x")
		out.Func().Define([]pipe.Var{x}, pipe.Const(int32(0))) // one dim, not two
	}
	e := catchUserError(t, func() { g.CallGenerate() })
	require.Contains(t, e.Error(), `"output"`)
}

func TestPipelineBeforeGenerate(t *testing.T) {
	g, b := newTestBuilder(t)
	b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	catchUserError(t, func() { g.Pipeline() })
}

func TestValueTrackerAcrossTargets(t *testing.T) {
	registry := NewRegistry()
	instances := NewInstanceRegistry()
	alignment := map[string]int{"x86-64-linux": 4, "arm-64-linux": 8, "arm-32-android": 16}
	registry.Register("resample", func(ctx *Context) Generator {
		g := &testGen{}
		b := g.ConfigureWith(ctx, g, instances)
		in := b.Input("input", BufferKind, WithType(dtypes.Float32), WithDims(1))
		out := b.Output("output", FunctionKind, WithType(dtypes.Float32), WithDims(1))
		g.generate = func(g *testGen) {
			x := pipe.NewVar("x")
			out.Define([]pipe.Var{x}, in.At(x.Expr()))
		}
		return g
	})

	run := func(ctx *Context) {
		g := registry.Create("resample", ctx)
		base := BaseOf(g)
		buf := pipe.NewBufferParameter(dtypes.Float32, 1, "input")
		buf.SetHostAlignment(alignment[base.Target().String()])
		base.SetInputs(buf)
		base.CallGenerate()
		base.CallSchedule()
		base.Finalize()
	}

	baseCtx := NewContext(must1(pipe.ParseTarget("x86-64-linux")))
	run(baseCtx)
	// Repeating the same alignment leaves the shared histories untouched.
	run(baseCtx.ForTarget(must1(pipe.ParseTarget("x86-64-linux"))))
	// A second distinct alignment fills the per-position history exactly to
	// the limit.
	run(baseCtx.ForTarget(must1(pipe.ParseTarget("arm-64-linux"))))
	// A third one overflows the shared tracker.
	e := catchUserError(t, func() {
		run(baseCtx.ForTarget(must1(pipe.ParseTarget("arm-32-android"))))
	})
	require.Contains(t, e.Error(), `"input"`)
	require.Contains(t, e.Error(), "too many distinct values")
}

func must1[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

func TestConfigureMisuse(t *testing.T) {
	g := &testGen{}
	g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	catchInternalError(t, func() {
		g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	})

	h := &testGen{}
	catchInternalError(t, func() { h.ConfigureWith(nil, h, nil) })

	// self must embed the Base being configured.
	i, j := &testGen{}, &testGen{}
	catchInternalError(t, func() {
		i.ConfigureWith(NewContext(pipe.HostTarget()), j, NewInstanceRegistry())
	})
}

func TestSetNames(t *testing.T) {
	g := &testGen{}
	g.ConfigureWith(NewContext(pipe.HostTarget()), g, NewInstanceRegistry())
	g.SetNames("brighten", "brighten_stub")
	require.Equal(t, "brighten", g.RegisteredName())
	require.Equal(t, "brighten_stub", g.StubName())
	catchInternalError(t, func() { g.SetNames("again", "again") })
	catchUserError(t, func() {
		h := &testGen{}
		h.ConfigureWith(NewContext(pipe.HostTarget()), h, NewInstanceRegistry())
		h.SetNames("_bad", "x")
	})
}

func TestFinalizeUnregistersFields(t *testing.T) {
	instances := NewInstanceRegistry()
	g := &testGen{}
	b := g.ConfigureWith(NewContext(pipe.HostTarget()), g, instances)
	b.Input("input", ScalarKind, WithType(dtypes.Int32))
	b.Output("output", FunctionKind, WithType(dtypes.Int32), WithDims(0))
	require.Len(t, instances.InstancesOf(g, GeneratorParamField), 3) // the context params
	g.Finalize()
	require.Empty(t, instances.InstancesOf(g, GeneratorParamField))
	require.Empty(t, instances.InstancesOf(g, InputField))
	require.Empty(t, instances.InstancesOf(g, OutputField))
}

func TestDescribe(t *testing.T) {
	registry := NewRegistry()
	instances := NewInstanceRegistry()
	registry.Register("brighten", func(ctx *Context) Generator {
		g := &testGen{}
		b := g.ConfigureWith(ctx, g, instances)
		offset := DeclareParam(b, "offset", 0)
		in := b.Input("input", BufferKind, WithType(dtypes.Uint8), WithDims(2))
		out := b.Output("output", FunctionKind, WithType(dtypes.Uint8), WithDims(2))
		g.generate = func(g *testGen) {
			x, y := pipe.NewVar("x"), pipe.NewVar("y")
			out.Define([]pipe.Var{x, y},
				pipe.Add(in.At(x.Expr(), y.Expr()), pipe.Const(int32(offset.Value()))))
		}
		return g
	})

	g := registry.Create("brighten", NewContext(pipe.HostTarget()))
	base := BaseOf(g)
	base.SetParamValues(map[string]string{"offset": "7"})
	desc := base.Describe()

	require.Equal(t, "brighten", desc.RegisteredName)
	require.Equal(t, "brighten", desc.StubName)

	// Synthetic and context params are filtered out.
	require.Len(t, desc.Params, 1)
	require.Equal(t, "offset", desc.Params[0].Name)
	require.Equal(t, "int", desc.Params[0].Type)
	require.Equal(t, "0", desc.Params[0].Default)
	require.Equal(t, "7", desc.Params[0].Value)

	require.Len(t, desc.Inputs, 1)
	require.Equal(t, "input", desc.Inputs[0].Name)
	require.Equal(t, "Buffer", desc.Inputs[0].Kind)
	require.Equal(t, []string{"Uint8"}, desc.Inputs[0].Types)
	require.Equal(t, 2, desc.Inputs[0].Dims)
	require.False(t, desc.Inputs[0].IsArray)

	require.Len(t, desc.Outputs, 1)
	require.Equal(t, "output", desc.Outputs[0].Name)
	require.Equal(t, "Function", desc.Outputs[0].Kind)

	require.Equal(t, ScheduleCalled, base.CurrentPhase())
	base.Finalize()
}
