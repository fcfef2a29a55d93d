package generator

import (
	"fmt"
	"strconv"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fish2000/halogen/pipe"
)

// Param is a named, typed, build-time configuration value of a generator.
// Concrete parameters are *TypedParam[T]; synthetic parameters exposing a
// field's type/dims/array-size are created by the framework and report
// IsSynthetic.
type Param interface {
	// Name returns the parameter name.
	Name() string
	// SetFromString parses and sets the value. Parameters are writable only
	// before the generate phase.
	SetFromString(value string)
	// ValueString renders the current value.
	ValueString() string
	// DefaultString renders the default value.
	DefaultString() string
	// TypeName names the parameter's value type, for stubs and metadata.
	TypeName() string
	// IsSynthetic reports whether the parameter is a framework-created knob.
	IsSynthetic() bool

	setAny(value any)
	setOwner(owner *Base)
}

// alwaysReadable are the parameters fixed at context-construction time; they
// bypass the phase gating entirely.
func alwaysReadable(name string) bool {
	return name == "target" || name == "auto_schedule" || name == "machine_params"
}

// ParamValue is the constraint for types a TypedParam can hold.
type ParamValue interface {
	bool | int | int64 | float64 | string |
		dtypes.DType | pipe.Target | pipe.MachineParams
}

// TypedParam is a generator configuration parameter holding a value of type
// T. Declare one with DeclareParam.
type TypedParam[T ParamValue] struct {
	name         string
	value        T
	defaultValue T
	owner        *Base
}

// NewParam returns an unattached parameter. Most callers want DeclareParam,
// which also registers the parameter with its generator.
func NewParam[T ParamValue](name string, defaultValue T) *TypedParam[T] {
	return &TypedParam[T]{name: name, value: defaultValue, defaultValue: defaultValue}
}

// Name returns the parameter name.
func (p *TypedParam[T]) Name() string { return p.name }

// Value returns the current value. Except for the always-readable context
// parameters, values are readable only once the generate phase has started.
func (p *TypedParam[T]) Value() T {
	p.checkReadable()
	return p.value
}

// Default returns the default value.
func (p *TypedParam[T]) Default() T { return p.defaultValue }

// Set sets the value. Parameters are writable only before the generate
// phase.
func (p *TypedParam[T]) Set(value T) {
	p.checkWritable()
	p.value = value
}

// SetFromString parses value and sets the parameter.
func (p *TypedParam[T]) SetFromString(value string) {
	var parsed T
	switch slot := any(&parsed).(type) {
	case *bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	case *int:
		v, err := strconv.Atoi(value)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	case *int64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	case *float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	case *string:
		*slot = value
	case *dtypes.DType:
		v, err := dtypes.DTypeString(value)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	case *pipe.Target:
		v, err := pipe.ParseTarget(value)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	case *pipe.MachineParams:
		v, err := pipe.ParseMachineParams(value)
		if err != nil {
			p.failParse(value)
		}
		*slot = v
	}
	p.Set(parsed)
}

func (p *TypedParam[T]) failParse(value string) {
	userErrorf("the GeneratorParam %q cannot be set from %q", p.name, value)
}

// ValueString renders the current value without the phase gating applied by
// Value.
func (p *TypedParam[T]) ValueString() string { return fmt.Sprintf("%v", p.value) }

// DefaultString renders the default value.
func (p *TypedParam[T]) DefaultString() string { return fmt.Sprintf("%v", p.defaultValue) }

// TypeName names T.
func (p *TypedParam[T]) TypeName() string {
	switch any(p.value).(type) {
	case bool:
		return "bool"
	case int:
		return "int"
	case int64:
		return "int64"
	case float64:
		return "float64"
	case string:
		return "string"
	case dtypes.DType:
		return "DType"
	case pipe.Target:
		return "Target"
	case pipe.MachineParams:
		return "MachineParams"
	}
	return fmt.Sprintf("%T", p.value)
}

// IsSynthetic reports false: a TypedParam is always user-declared.
func (p *TypedParam[T]) IsSynthetic() bool { return false }

func (p *TypedParam[T]) setAny(value any) {
	if typed, ok := value.(T); ok {
		p.Set(typed)
		return
	}
	if s, ok := value.(string); ok {
		p.SetFromString(s)
		return
	}
	userErrorf("the GeneratorParam %q cannot be set with a value of type %T", p.name, value)
}

func (p *TypedParam[T]) setOwner(owner *Base) { p.owner = owner }

func (p *TypedParam[T]) checkReadable() {
	if alwaysReadable(p.name) {
		return
	}
	if p.owner == nil || p.owner.phase < GenerateCalled {
		userErrorf("the GeneratorParam %q cannot be read before Generate or Build is called", p.name)
	}
}

func (p *TypedParam[T]) checkWritable() {
	// Writing with no generator attached is fine; it covers construction
	// time, before the parameter is adopted.
	if p.owner == nil {
		return
	}
	if p.owner.phase >= GenerateCalled {
		userErrorf("the GeneratorParam %q cannot be written after Generate or Build is called", p.name)
	}
}

// DeclareParam declares a configuration parameter on the generator being
// built, returning the parameter for the generator to keep.
func DeclareParam[T ParamValue](b *Builder, name string, defaultValue T) *TypedParam[T] {
	p := NewParam(name, defaultValue)
	b.register(p, GeneratorParamField)
	return p
}

type syntheticKind int

const (
	syntheticType syntheticKind = iota
	syntheticDim
	syntheticArraySize
)

// syntheticParam exposes an otherwise-implicit field property (element
// types, dimension count or array cardinality) as a settable configuration
// knob named "field.type", "field.dim" or "field.size". Setting a knob whose
// property is already fixed is a no-op when the value agrees and a mismatch
// error when it does not.
type syntheticParam struct {
	name  string
	gio   *ioField
	kind  syntheticKind
	owner *Base
}

func newSyntheticParam(name string, gio *ioField, kind syntheticKind) *syntheticParam {
	return &syntheticParam{name: name, gio: gio, kind: kind}
}

func (p *syntheticParam) Name() string { return p.name }

func (p *syntheticParam) SetFromString(value string) {
	p.checkWritable()
	switch p.kind {
	case syntheticType:
		p.gio.checkMatchingTypes(ParseTypeList(value))
	case syntheticDim:
		d, err := strconv.Atoi(value)
		if err != nil || d < 0 {
			userErrorf("the GeneratorParam %q cannot be set from %q", p.name, value)
		}
		p.gio.checkMatchingDims(d)
	case syntheticArraySize:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			userErrorf("the GeneratorParam %q cannot be set from %q", p.name, value)
		}
		p.gio.checkMatchingArraySize(n)
	}
}

func (p *syntheticParam) ValueString() string {
	switch p.kind {
	case syntheticType:
		if p.gio.TypesDefined() {
			return typeListString(p.gio.types)
		}
	case syntheticDim:
		if p.gio.DimsDefined() {
			return strconv.Itoa(p.gio.dims)
		}
	case syntheticArraySize:
		if p.gio.ArraySizeDefined() {
			return strconv.Itoa(p.gio.arraySize)
		}
	}
	return ""
}

func (p *syntheticParam) DefaultString() string { return "" }

func (p *syntheticParam) TypeName() string {
	if p.kind == syntheticType {
		return "DType"
	}
	return "int"
}

func (p *syntheticParam) IsSynthetic() bool { return true }

func (p *syntheticParam) setAny(value any) {
	if s, ok := value.(string); ok {
		p.SetFromString(s)
		return
	}
	userErrorf("the GeneratorParam %q cannot be set with a value of type %T", p.name, value)
}

func (p *syntheticParam) setOwner(owner *Base) { p.owner = owner }

func (p *syntheticParam) checkWritable() {
	if p.owner == nil {
		return
	}
	if p.owner.phase >= GenerateCalled {
		userErrorf("the GeneratorParam %q cannot be written after Generate or Build is called", p.name)
	}
}
