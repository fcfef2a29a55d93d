package pipe

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Parameter is the runtime descriptor backing a pipeline argument: either a
// buffer (host alignment plus per-dimension min/extent/stride constraints)
// or a scalar (min/max/default values, plus an optional bound value).
type Parameter struct {
	name   string
	dtype  dtypes.DType
	dims   int
	buffer bool

	hostAlignment          int
	mins, extents, strides []Expr
	minEstimates           []Expr
	extentEstimates        []Expr

	minValue, maxValue, defValue Expr
	scalarValue                  Expr
}

// NewBufferParameter returns a buffer parameter of the given element type,
// dimension count and name. The host alignment defaults to the element size.
func NewBufferParameter(dtype dtypes.DType, dims int, name string) *Parameter {
	if dims < 0 {
		exceptions.Panicf("pipe: buffer parameter %q requires dims >= 0, got %d", name, dims)
	}
	return &Parameter{
		name:            name,
		dtype:           dtype,
		dims:            dims,
		buffer:          true,
		hostAlignment:   int(dtype.Memory()),
		mins:            make([]Expr, dims),
		extents:         make([]Expr, dims),
		strides:         make([]Expr, dims),
		minEstimates:    make([]Expr, dims),
		extentEstimates: make([]Expr, dims),
	}
}

// NewScalarParameter returns a scalar parameter of the given type and name.
func NewScalarParameter(dtype dtypes.DType, name string) *Parameter {
	return &Parameter{
		name:          name,
		dtype:         dtype,
		dims:          0,
		hostAlignment: int(dtype.Memory()),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// DType returns the element type.
func (p *Parameter) DType() dtypes.DType { return p.dtype }

// Dimensions returns the dimension count (0 for scalars).
func (p *Parameter) Dimensions() int { return p.dims }

// IsBuffer reports whether the parameter describes a buffer.
func (p *Parameter) IsBuffer() bool { return p.buffer }

// HostAlignment returns the required host alignment in bytes.
func (p *Parameter) HostAlignment() int { return p.hostAlignment }

// SetHostAlignment sets the required host alignment in bytes.
func (p *Parameter) SetHostAlignment(bytes int) { p.hostAlignment = bytes }

// MinConstraint returns the min constraint for dimension i, possibly
// undefined.
func (p *Parameter) MinConstraint(i int) Expr { return p.bufferConstraint(p.mins, i) }

// ExtentConstraint returns the extent constraint for dimension i.
func (p *Parameter) ExtentConstraint(i int) Expr { return p.bufferConstraint(p.extents, i) }

// StrideConstraint returns the stride constraint for dimension i.
func (p *Parameter) StrideConstraint(i int) Expr { return p.bufferConstraint(p.strides, i) }

// SetMinConstraint sets the min constraint for dimension i.
func (p *Parameter) SetMinConstraint(i int, value Expr) { p.setBufferConstraint(p.mins, i, value) }

// SetExtentConstraint sets the extent constraint for dimension i.
func (p *Parameter) SetExtentConstraint(i int, value Expr) {
	p.setBufferConstraint(p.extents, i, value)
}

// SetStrideConstraint sets the stride constraint for dimension i.
func (p *Parameter) SetStrideConstraint(i int, value Expr) {
	p.setBufferConstraint(p.strides, i, value)
}

// SetMinEstimate sets the scheduling estimate for the min of dimension i.
func (p *Parameter) SetMinEstimate(i int, value Expr) {
	p.setBufferConstraint(p.minEstimates, i, value)
}

// SetExtentEstimate sets the scheduling estimate for the extent of
// dimension i.
func (p *Parameter) SetExtentEstimate(i int, value Expr) {
	p.setBufferConstraint(p.extentEstimates, i, value)
}

// MinEstimate returns the scheduling estimate for the min of dimension i.
func (p *Parameter) MinEstimate(i int) Expr { return p.bufferConstraint(p.minEstimates, i) }

// ExtentEstimate returns the scheduling estimate for the extent of
// dimension i.
func (p *Parameter) ExtentEstimate(i int) Expr { return p.bufferConstraint(p.extentEstimates, i) }

func (p *Parameter) bufferConstraint(slot []Expr, i int) Expr {
	p.assertBufferDim(i)
	return slot[i]
}

func (p *Parameter) setBufferConstraint(slot []Expr, i int, value Expr) {
	p.assertBufferDim(i)
	slot[i] = value
}

func (p *Parameter) assertBufferDim(i int) {
	if !p.buffer {
		exceptions.Panicf("pipe: parameter %q is a scalar and has no buffer constraints", p.name)
	}
	if i < 0 || i >= p.dims {
		exceptions.Panicf("pipe: parameter %q has %d dimensions, constraint index %d is out of range",
			p.name, p.dims, i)
	}
}

// MinValue returns the scalar minimum, possibly undefined.
func (p *Parameter) MinValue() Expr { return p.minValue }

// MaxValue returns the scalar maximum, possibly undefined.
func (p *Parameter) MaxValue() Expr { return p.maxValue }

// DefaultValue returns the scalar default, possibly undefined.
func (p *Parameter) DefaultValue() Expr { return p.defValue }

// SetMinValue sets the scalar minimum.
func (p *Parameter) SetMinValue(value Expr) { p.assertScalar(); p.minValue = value }

// SetMaxValue sets the scalar maximum.
func (p *Parameter) SetMaxValue(value Expr) { p.assertScalar(); p.maxValue = value }

// SetDefaultValue sets the scalar default.
func (p *Parameter) SetDefaultValue(value Expr) { p.assertScalar(); p.defValue = value }

// ScalarValue returns the bound scalar value, possibly undefined.
func (p *Parameter) ScalarValue() Expr { return p.scalarValue }

// SetScalarValue binds the scalar value (what a Variable backed by this
// parameter evaluates to).
func (p *Parameter) SetScalarValue(value Expr) { p.assertScalar(); p.scalarValue = value }

func (p *Parameter) assertScalar() {
	if p.buffer {
		exceptions.Panicf("pipe: parameter %q is a buffer and has no scalar value", p.name)
	}
}

// Constraints returns the parameter's ordered constraint tuple: the host
// alignment, then per-dimension {min, extent, stride} for buffers or
// {min, max} for scalars. Undefined entries stay undefined.
func (p *Parameter) Constraints() []Expr {
	values := []Expr{Const(int32(p.hostAlignment))}
	if p.buffer {
		for i := 0; i < p.dims; i++ {
			values = append(values, p.mins[i], p.extents[i], p.strides[i])
		}
	} else {
		values = append(values, p.minValue, p.maxValue)
	}
	return values
}
