package gengen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/fish2000/halogen/emit"
	"github.com/fish2000/halogen/generator"
	"github.com/fish2000/halogen/pipe"
)

type brighten struct {
	generator.Base
	offset *generator.TypedParam[int]
	in     *generator.Input
	out    *generator.Output
}

func (g *brighten) Generate() {
	x, y := pipe.NewVar("x"), pipe.NewVar("y")
	g.out.Define([]pipe.Var{x, y},
		pipe.Add(g.in.At(x.Expr(), y.Expr()), pipe.Const(int32(g.offset.Value()))))
}

func (g *brighten) Schedule() {}

func newTestRegistry() *generator.Registry {
	registry := generator.NewRegistry()
	instances := generator.NewInstanceRegistry()
	registry.Register("brighten", func(ctx *generator.Context) generator.Generator {
		g := &brighten{}
		b := g.ConfigureWith(ctx, g, instances)
		g.offset = generator.DeclareParam(b, "offset", 0)
		g.in = b.Input("input", generator.BufferKind,
			generator.WithType(dtypes.Uint8), generator.WithDims(2))
		g.out = b.Output("output", generator.FunctionKind,
			generator.WithType(dtypes.Uint8), generator.WithDims(2))
		return g
	})
	return registry
}

func runMain(t *testing.T, args ...string) (code int, stderr string) {
	t.Helper()
	var sb strings.Builder
	code = MainWithRegistry(args, &sb, newTestRegistry())
	return code, sb.String()
}

func TestMainUsageErrors(t *testing.T) {
	code, stderr := runMain(t, "-q", "whatever")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown flag")
	require.Contains(t, stderr, "Usage:")

	code, stderr = runMain(t, "-g")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "missing its value")

	code, stderr = runMain(t, "-g", "brighten", "notapair")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "notapair")

	code, stderr = runMain(t, "-g", "brighten")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "-o output directory is required")
}

func TestMainListsGenerators(t *testing.T) {
	registry := generator.NewRegistry()
	registry.Register("alpha", stubFactory())
	registry.Register("beta", stubFactory())
	var sb strings.Builder
	code := MainWithRegistry(nil, &sb, registry)
	require.Equal(t, 1, code)
	require.Contains(t, sb.String(), "registered generators:")
	require.Contains(t, sb.String(), "alpha")
	require.Contains(t, sb.String(), "beta")
}

func stubFactory() generator.Factory {
	instances := generator.NewInstanceRegistry()
	return func(ctx *generator.Context) generator.Generator {
		g := &brighten{}
		b := g.ConfigureWith(ctx, g, instances)
		g.offset = generator.DeclareParam(b, "offset", 0)
		g.in = b.Input("input", generator.BufferKind,
			generator.WithType(dtypes.Uint8), generator.WithDims(2))
		g.out = b.Output("output", generator.FunctionKind,
			generator.WithType(dtypes.Uint8), generator.WithDims(2))
		return g
	}
}

func TestMainSingleGeneratorIsImplied(t *testing.T) {
	// With exactly one registered generator, -g can be omitted.
	dir := t.TempDir()
	code, stderr := runMain(t, "-o", dir, "-e", "metadata")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	require.FileExists(t, filepath.Join(dir, "brighten.yaml"))
}

func TestMainEmitsStubAndMetadata(t *testing.T) {
	dir := t.TempDir()
	code, stderr := runMain(t,
		"-g", "brighten", "-o", dir, "-e", "stub,metadata", "-p", "filters",
		"offset=7")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	stub, err := os.ReadFile(filepath.Join(dir, "brighten.stub.go"))
	require.NoError(t, err)
	require.Contains(t, string(stub), "package filters")
	require.Contains(t, string(stub), "type BrightenArgs struct {")

	metadata, err := os.ReadFile(filepath.Join(dir, "brighten.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(metadata), "generator: brighten")
	require.Contains(t, string(metadata), `value: "7"`)
}

func TestMainHonorsFunctionAndFileNames(t *testing.T) {
	dir := t.TempDir()
	code, stderr := runMain(t,
		"-g", "brighten", "-f", "imaging.brighten_fast", "-o", dir, "-e", "metadata")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	require.FileExists(t, filepath.Join(dir, "brighten_fast.yaml"))

	code, stderr = runMain(t,
		"-g", "brighten", "-n", "custom_base", "-o", dir, "-e", "metadata")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	require.FileExists(t, filepath.Join(dir, "custom_base.yaml"))
}

func TestMainUnknownGenerator(t *testing.T) {
	code, stderr := runMain(t, "-g", "sharpen", "-o", t.TempDir(), "-e", "metadata")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "generator not found")
	require.Contains(t, stderr, "brighten")
}

func TestMainUnknownGeneratorArg(t *testing.T) {
	code, stderr := runMain(t, "-g", "brighten", "-o", t.TempDir(), "-e", "metadata",
		"nonesuch=1")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "nonesuch")
}

func TestMainCompiledArtifactsNeedTarget(t *testing.T) {
	code, stderr := runMain(t, "-g", "brighten", "-o", t.TempDir(), "-e", "object")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "target=")
}

func TestMainCompiledArtifactsNeedCompiler(t *testing.T) {
	code, stderr := runMain(t, "-g", "brighten", "-o", t.TempDir(), "-e", "object",
		"target=x86-64-linux")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "no compiler is linked")
}

func TestMainCompileHook(t *testing.T) {
	var compiled []pipe.Target
	Compile = func(g generator.Generator, target pipe.Target, outputs emit.Outputs) error {
		require.NotEmpty(t, outputs.ObjectName)
		require.Len(t, generator.BaseOf(g).Pipeline(), 1)
		compiled = append(compiled, target)
		return nil
	}
	defer func() { Compile = nil }()

	dir := t.TempDir()
	code, stderr := runMain(t, "-g", "brighten", "-o", dir, "-e", "object,metadata",
		"target=x86-64-linux,arm-64-linux")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	require.Len(t, compiled, 2)
	require.Equal(t, "x86-64-linux", compiled[0].String())
	require.Equal(t, "arm-64-linux", compiled[1].String())
	require.FileExists(t, filepath.Join(dir, "brighten.yaml"))
}

func TestMainBadEmitList(t *testing.T) {
	code, stderr := runMain(t, "-g", "brighten", "-o", t.TempDir(), "-e", "objet")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown emit artifact")

	code, stderr = runMain(t, "-g", "brighten", "-o", t.TempDir(), "-e", "metadata",
		"-x", "o=obj")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, ".old=.new")
}
