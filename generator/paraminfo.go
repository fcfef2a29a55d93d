package generator

import (
	"github.com/fish2000/halogen/pipe"
)

// ParamInfo is the per-generator index of declared fields, built once on
// first access: it scans the instance registry for the generator's fields,
// validates naming and uniqueness, wires the ownership back-references, and
// creates the synthetic parameters.
type ParamInfo struct {
	legacyParams    []*pipe.Parameter
	params          []Param
	inputs          []*Input
	outputs         []*Output
	syntheticParams []*syntheticParam

	paramsByName map[string]Param
}

func newParamInfo(b *Base) *ParamInfo {
	pi := &ParamInfo{}
	names := make(map[string]bool)
	claim := func(name, what string) {
		CheckValidName(name, what)
		if names[name] {
			userErrorf("duplicate %s name: %q", what, name)
		}
		names[name] = true
	}

	for _, field := range b.instances.InstancesOf(b.self, LegacyParamField) {
		p, ok := field.(*pipe.Parameter)
		if !ok || p == nil {
			internalErrorf("non-parameter registered as a legacy parameter")
		}
		claim(p.Name(), "Param")
		pi.legacyParams = append(pi.legacyParams, p)
	}

	addSyntheticParams := func(gio *ioField) {
		if gio.kind != ScalarKind {
			typeParam := newSyntheticParam(gio.name+".type", gio, syntheticType)
			dimParam := newSyntheticParam(gio.name+".dim", gio, syntheticDim)
			pi.syntheticParams = append(pi.syntheticParams, typeParam, dimParam)
			pi.params = append(pi.params, typeParam, dimParam)
		}
		if gio.IsArray() {
			sizeParam := newSyntheticParam(gio.name+".size", gio, syntheticArraySize)
			pi.syntheticParams = append(pi.syntheticParams, sizeParam)
			pi.params = append(pi.params, sizeParam)
		}
	}

	for _, field := range b.instances.InstancesOf(b.self, InputField) {
		in, ok := field.(*Input)
		if !ok || in == nil {
			internalErrorf("non-input registered as an Input")
		}
		claim(in.name, "Input")
		if in.owner != nil && in.owner != b {
			internalErrorf("the Input %q already belongs to another generator", in.name)
		}
		in.owner = b
		pi.inputs = append(pi.inputs, in)
		addSyntheticParams(&in.ioField)
	}

	for _, field := range b.instances.InstancesOf(b.self, OutputField) {
		out, ok := field.(*Output)
		if !ok || out == nil {
			internalErrorf("non-output registered as an Output")
		}
		claim(out.name, "Output")
		if out.owner != nil && out.owner != b {
			internalErrorf("the Output %q already belongs to another generator", out.name)
		}
		out.owner = b
		pi.outputs = append(pi.outputs, out)
		addSyntheticParams(&out.ioField)
	}

	if len(pi.legacyParams) > 0 && len(pi.inputs) > 0 {
		userErrorf("Inputs may not be used together with legacy parameters")
	}
	if len(pi.legacyParams) > 0 && len(pi.outputs) > 0 {
		userErrorf("Outputs may not be used together with legacy parameters")
	}

	for _, field := range b.instances.InstancesOf(b.self, GeneratorParamField) {
		p, ok := field.(Param)
		if !ok || p == nil {
			internalErrorf("non-parameter registered as a GeneratorParam")
		}
		claim(p.Name(), "GeneratorParam")
		p.setOwner(b)
		pi.params = append(pi.params, p)
	}

	// Indexed in a separate pass so synthetic params are included too.
	pi.paramsByName = make(map[string]Param, len(pi.params))
	for _, p := range pi.params {
		pi.paramsByName[p.Name()] = p
	}
	for _, sp := range pi.syntheticParams {
		sp.setOwner(b)
	}
	return pi
}

// Params returns every generator parameter, synthetic ones included, in
// declaration order (synthetics first, as created).
func (pi *ParamInfo) Params() []Param { return pi.params }

// Inputs returns the declared inputs in declaration order.
func (pi *ParamInfo) Inputs() []*Input { return pi.inputs }

// Outputs returns the declared outputs in declaration order.
func (pi *ParamInfo) Outputs() []*Output { return pi.outputs }

// LegacyParams returns the old-style parameters in declaration order.
func (pi *ParamInfo) LegacyParams() []*pipe.Parameter { return pi.legacyParams }
