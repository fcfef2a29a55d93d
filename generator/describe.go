package generator

// ParamDescription is one configuration parameter of a described generator.
type ParamDescription struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default string `yaml:"default"`
	Value   string `yaml:"value"`
}

// FieldDescription is one input or output of a described generator.
type FieldDescription struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Types     []string `yaml:"types,omitempty"`
	Dims      int      `yaml:"dims"`
	IsArray   bool     `yaml:"is_array,omitempty"`
	ArraySize int      `yaml:"array_size,omitempty"`
}

// Description is a self-contained snapshot of a generator instance's
// interface, suitable for emitting stubs and metadata without holding on to
// the instance itself.
type Description struct {
	RegisteredName string             `yaml:"registered_name"`
	StubName       string             `yaml:"stub_name"`
	Params         []ParamDescription `yaml:"params"`
	Inputs         []FieldDescription `yaml:"inputs"`
	Outputs        []FieldDescription `yaml:"outputs"`
}

func describeField(f *ioField) FieldDescription {
	d := FieldDescription{
		Name:    f.Name(),
		Kind:    f.Kind().String(),
		Dims:    -1,
		IsArray: f.IsArray(),
	}
	if f.TypesDefined() {
		for _, dt := range f.Types() {
			d.Types = append(d.Types, dt.String())
		}
	}
	if f.DimsDefined() {
		d.Dims = f.Dims()
	}
	if f.IsArray() {
		if f.ArraySizeDefined() {
			d.ArraySize = f.ArraySize()
		} else {
			d.ArraySize = -1
		}
	}
	return d
}

// Describe runs the instance through its generate and schedule phases and
// returns a snapshot of its interface. The instance is consumed: it ends in
// the ScheduleCalled phase. The names must have been set (instances made
// through a Registry have them set automatically).
func (b *Base) Describe() Description {
	if b.registeredName == "" {
		internalErrorf("Describe requires the generator names to be set")
	}
	if _, legacy := b.self.(Building); legacy {
		b.BuildPipeline()
	} else {
		b.CallGenerate()
		b.CallSchedule()
	}
	pi := b.ParamInfo()
	d := Description{
		RegisteredName: b.registeredName,
		StubName:       b.stubName,
	}
	for _, p := range pi.params {
		if p.IsSynthetic() || alwaysReadable(p.Name()) {
			continue
		}
		d.Params = append(d.Params, ParamDescription{
			Name:    p.Name(),
			Type:    p.TypeName(),
			Default: p.DefaultString(),
			Value:   p.ValueString(),
		})
	}
	for _, in := range pi.inputs {
		d.Inputs = append(d.Inputs, describeField(&in.ioField))
	}
	for _, out := range pi.outputs {
		d.Outputs = append(d.Outputs, describeField(&out.ioField))
	}
	return d
}
