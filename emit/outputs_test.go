package emit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fish2000/halogen/pipe"
)

func linuxTarget(t *testing.T) pipe.Target {
	t.Helper()
	target, err := pipe.ParseTarget("x86-64-linux")
	require.NoError(t, err)
	return target
}

func TestComputeOutputs(t *testing.T) {
	options := Options{
		Object:        true,
		Assembly:      true,
		Header:        true,
		StaticLibrary: true,
		Schedule:      true,
		Stub:          true,
		Metadata:      true,
	}
	out := ComputeOutputs(linuxTarget(t), "gen/brighten", options)
	require.Equal(t, "gen/brighten.o", out.ObjectName)
	require.Equal(t, "gen/brighten.s", out.AssemblyName)
	require.Equal(t, "gen/brighten.h", out.HeaderName)
	require.Equal(t, "gen/brighten.a", out.StaticLibraryName)
	require.Equal(t, "gen/brighten.schedule", out.ScheduleName)
	require.Equal(t, "gen/brighten.stub.go", out.StubName)
	require.Equal(t, "gen/brighten.yaml", out.MetadataName)
	// Unselected artifacts stay empty.
	require.Empty(t, out.BitcodeName)
	require.Empty(t, out.StmtName)
}

func TestComputeOutputsWindows(t *testing.T) {
	target, err := pipe.ParseTarget("x86-64-windows")
	require.NoError(t, err)
	out := ComputeOutputs(target, "brighten", Options{Object: true, StaticLibrary: true})
	require.Equal(t, "brighten.obj", out.ObjectName)
	require.Equal(t, "brighten.lib", out.StaticLibraryName)

	mingw, err := pipe.ParseTarget("x86-64-windows-mingw")
	require.NoError(t, err)
	out = ComputeOutputs(mingw, "brighten", Options{Object: true, StaticLibrary: true})
	require.Equal(t, "brighten.o", out.ObjectName)
	require.Equal(t, "brighten.a", out.StaticLibraryName)
}

func TestComputeOutputsSubstitutions(t *testing.T) {
	options := Options{
		Object:        true,
		StaticLibrary: true,
		Substitutions: map[string]string{".o": ".elf"},
	}
	out := ComputeOutputs(linuxTarget(t), "brighten", options)
	require.Equal(t, "brighten.elf", out.ObjectName)
	require.Equal(t, "brighten.a", out.StaticLibraryName)
}

func TestOptionsPredicates(t *testing.T) {
	require.False(t, Options{}.EmitsAnything())
	require.False(t, Options{Stub: true, Metadata: true}.CompiledOnly())
	require.True(t, Options{Stub: true, Object: true}.CompiledOnly())
	require.True(t, Options{Metadata: true}.EmitsAnything())
}

func TestBasePath(t *testing.T) {
	require.Equal(t, filepath.Join("out", "brighten"), BasePath("out", "brighten", ""))
	require.Equal(t, filepath.Join("out", "custom"), BasePath("out", "brighten", "custom"))
	// Qualified function names keep only the last segment.
	require.Equal(t, filepath.Join("out", "brighten"), BasePath("out", "imaging.filters.brighten", ""))
	require.Equal(t, "brighten", SimpleName("imaging.filters.brighten"))
	require.Equal(t, "brighten", SimpleName("brighten"))
}
