package generator

import (
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fish2000/halogen/pipe"
)

// Builder declares the fields of one generator instance, registering each
// with the instance registry under the owning generator. Obtain one from
// Base.Configure; the declaration helpers (DeclareParam, Builder.Input,
// Builder.Output, ...) are the explicit self-registration that associates a
// field with its owner.
type Builder struct {
	base     *Base
	owner    Generator
	registry *InstanceRegistry
}

func (b *Builder) register(field any, category FieldCategory) {
	b.registry.Register(field, category, b.owner)
}

// FieldOption configures a declared Input or Output.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	types     []dtypes.DType
	dims      int
	arraySize int
}

// WithType fixes the field's single element type at declaration.
func WithType(dtype dtypes.DType) FieldOption {
	return func(c *fieldConfig) { c.types = []dtypes.DType{dtype} }
}

// WithTypes fixes the field's (tuple) element types at declaration.
func WithTypes(types ...dtypes.DType) FieldOption {
	return func(c *fieldConfig) { c.types = types }
}

// WithDims fixes the field's dimension count at declaration.
func WithDims(dims int) FieldOption {
	return func(c *fieldConfig) { c.dims = dims }
}

// WithArraySize fixes an array field's cardinality at declaration.
func WithArraySize(size int) FieldOption {
	return func(c *fieldConfig) { c.arraySize = size }
}

func applyFieldOptions(opts []FieldOption) fieldConfig {
	c := fieldConfig{dims: -1, arraySize: -1}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (b *Builder) newField(name string, kind Kind, array, isOutput bool, opts []FieldOption) ioField {
	c := applyFieldOptions(opts)
	if kind == ScalarKind {
		// Scalars have no dimensions to leave open.
		if c.dims > 0 {
			userErrorf("the Scalar field %q cannot have dimensions", name)
		}
		c.dims = 0
	}
	arraySize := c.arraySize
	if !array {
		if c.arraySize != -1 {
			userErrorf("the field %q is not an array and cannot have an array size", name)
		}
		arraySize = 1
	}
	return ioField{
		name:      name,
		kind:      kind,
		array:     array,
		arraySize: arraySize,
		dims:      c.dims,
		types:     c.types,
		isOutput:  isOutput,
	}
}

// Input declares a non-array input of the given kind.
func (b *Builder) Input(name string, kind Kind, opts ...FieldOption) *Input {
	in := &Input{ioField: b.newField(name, kind, false, false, opts)}
	b.register(in, InputField)
	return in
}

// InputArray declares an array input; its cardinality stays undefined unless
// fixed with WithArraySize.
func (b *Builder) InputArray(name string, kind Kind, opts ...FieldOption) *Input {
	in := &Input{ioField: b.newField(name, kind, true, false, opts)}
	b.register(in, InputField)
	return in
}

// Output declares a non-array output of the given kind. Outputs never take
// ScalarKind.
func (b *Builder) Output(name string, kind Kind, opts ...FieldOption) *Output {
	if kind == ScalarKind {
		userErrorf("the Output %q cannot be of Scalar kind", name)
	}
	out := &Output{ioField: b.newField(name, kind, false, true, opts)}
	b.register(out, OutputField)
	return out
}

// OutputArray declares an array output; its cardinality stays undefined
// unless fixed with WithArraySize (see also Output.Resize).
func (b *Builder) OutputArray(name string, kind Kind, opts ...FieldOption) *Output {
	if kind == ScalarKind {
		userErrorf("the Output %q cannot be of Scalar kind", name)
	}
	out := &Output{ioField: b.newField(name, kind, true, true, opts)}
	b.register(out, OutputField)
	return out
}

// LegacyParam declares an old-style, non-reflective parameter. Legacy
// parameters cannot coexist with typed Inputs or Outputs on the same
// generator, and force the one-step Build style.
func (b *Builder) LegacyParam(p *pipe.Parameter) *pipe.Parameter {
	if p == nil {
		internalErrorf("LegacyParam with a nil parameter")
	}
	b.register(p, LegacyParamField)
	return p
}
