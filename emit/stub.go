package emit

import (
	"io"
	"strings"
	"text/template"
	"unicode"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"

	"github.com/fish2000/halogen/generator"
)

// stubTemplate renders the Go wrapper for one generator: a typed args
// struct plus a call function that creates the generator by name, applies
// the params, binds the inputs and returns the flattened outputs.
var stubTemplate = template.Must(template.New("stub").Parse(
	`// Code generated by gengen. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/fish2000/halogen/generator"
	"github.com/fish2000/halogen/pipe"
)

// {{.TypeName}}Args configures one invocation of the {{printf "%q" .Generator}} generator.
// Param fields hold textual values ({{printf "%q" ""}} keeps the default).
type {{.TypeName}}Args struct {
{{- range .Params}}
	// {{.Field}} ({{.Type}}) defaults to {{printf "%q" .Default}}.
	{{.Field}} string
{{- end}}
{{- range .Inputs}}
	{{.Field}} {{.GoType}}
{{- end}}
}

// {{.TypeName}} runs the {{printf "%q" .Generator}} generator through its
// generate and schedule phases and returns the flattened outputs.
func {{.TypeName}}(ctx *generator.Context, args {{.TypeName}}Args) []*pipe.Func {
	g := generator.Create({{printf "%q" .Generator}}, ctx)
	base := generator.BaseOf(g)
	params := map[string]string{}
{{- range .Params}}
	if args.{{.Field}} != "" {
		params[{{printf "%q" .Name}}] = args.{{.Field}}
	}
{{- end}}
	base.SetParamValues(params)
	base.SetInputs(
{{- range .Inputs}}
		args.{{.Field}},
{{- end}}
	)
	base.CallGenerate()
	base.CallSchedule()
	return base.Pipeline()
}
`))

type stubParam struct {
	Name    string
	Field   string
	Type    string
	Default string
}

type stubInput struct {
	Name   string
	Field  string
	GoType string
}

type stubData struct {
	Package   string
	Generator string
	TypeName  string
	Params    []stubParam
	Inputs    []stubInput
}

// exportedName turns a snake_case declaration name into an exported Go
// identifier: "some_name" becomes "SomeName".
func exportedName(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func inputGoType(f generator.FieldDescription) string {
	var elem string
	switch f.Kind {
	case "Scalar":
		elem = "pipe.Expr"
	case "Function":
		elem = "*pipe.Func"
	case "Buffer":
		elem = "*pipe.Parameter"
	default:
		elem = "any"
	}
	if f.IsArray {
		return "[]" + elem
	}
	return elem
}

// WriteStub writes a Go source stub for desc to w, in package pkg.
func WriteStub(w io.Writer, desc generator.Description, pkg string) error {
	data := stubData{
		Package:   pkg,
		Generator: desc.RegisteredName,
		TypeName:  exportedName(desc.StubName),
	}
	for _, p := range desc.Params {
		data.Params = append(data.Params, stubParam{
			Name:    p.Name,
			Field:   exportedName(p.Name),
			Type:    p.Type,
			Default: p.Default,
		})
	}
	for _, in := range desc.Inputs {
		data.Inputs = append(data.Inputs, stubInput{
			Name:   in.Name,
			Field:  exportedName(in.Name),
			GoType: inputGoType(in),
		})
	}
	if err := stubTemplate.Execute(w, data); err != nil {
		return errors.Wrapf(err, "rendering stub for generator %q", desc.RegisteredName)
	}
	return nil
}

// StubString renders the stub to a string; it panics on template errors.
func StubString(desc generator.Description, pkg string) string {
	var sb strings.Builder
	must.M(WriteStub(&sb, desc, pkg))
	return sb.String()
}
