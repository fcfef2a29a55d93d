package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fish2000/halogen/generator"
)

func brightenDescription() generator.Description {
	return generator.Description{
		RegisteredName: "brighten",
		StubName:       "brighten",
		Params: []generator.ParamDescription{
			{Name: "offset", Type: "int", Default: "0", Value: "7"},
		},
		Inputs: []generator.FieldDescription{
			{Name: "input", Kind: "Buffer", Types: []string{"Uint8"}, Dims: 2},
			{Name: "scale_factors", Kind: "Scalar", Types: []string{"Float32"}, Dims: 0, IsArray: true, ArraySize: 3},
		},
		Outputs: []generator.FieldDescription{
			{Name: "output", Kind: "Function", Types: []string{"Uint8"}, Dims: 2},
		},
	}
}

func TestWriteMetadata(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteMetadata(&sb, brightenDescription()))
	text := sb.String()
	require.Contains(t, text, "generator: brighten")
	require.Contains(t, text, "name: offset")
	require.Contains(t, text, "default: \"0\"")
	require.Contains(t, text, "kind: Buffer")
	require.Contains(t, text, "array_size: 3")

	// The emitted document parses back into the same description.
	var md Metadata
	require.NoError(t, yaml.Unmarshal([]byte(text), &md))
	require.Equal(t, "brighten", md.Generator)
	require.Len(t, md.Inputs, 2)
	require.Equal(t, 2, md.Inputs[0].Dims)
	require.Len(t, md.Outputs, 1)
}

func TestWriteStub(t *testing.T) {
	text := StubString(brightenDescription(), "filters")
	require.Contains(t, text, "// Code generated by gengen. DO NOT EDIT.")
	require.Contains(t, text, "package filters")
	require.Contains(t, text, "type BrightenArgs struct {")
	require.Contains(t, text, "Offset string")
	require.Contains(t, text, "Input *pipe.Parameter")
	require.Contains(t, text, "ScaleFactors []pipe.Expr")
	require.Contains(t, text, "func Brighten(ctx *generator.Context, args BrightenArgs) []*pipe.Func {")
	require.Contains(t, text, `generator.Create("brighten", ctx)`)
	require.Contains(t, text, `params["offset"] = args.Offset`)
	require.Contains(t, text, "base.CallGenerate()")
	require.Contains(t, text, "base.CallSchedule()")
	require.Contains(t, text, "return base.Pipeline()")
}

func TestExportedName(t *testing.T) {
	require.Equal(t, "SumOfSquares", exportedName("sum_of_squares"))
	require.Equal(t, "Brighten", exportedName("brighten"))
	require.Equal(t, "F1", exportedName("f1"))
}
