package generator

import (
	"sync"

	"k8s.io/klog/v2"
)

// FieldCategory labels what a registered field object is.
type FieldCategory int

const (
	// GeneratorParamField marks a build-time configuration parameter.
	GeneratorParamField FieldCategory = iota
	// InputField marks a declared typed input.
	InputField
	// OutputField marks a declared typed output.
	OutputField
	// LegacyParamField marks an old-style, non-reflective parameter.
	LegacyParamField
)

func (c FieldCategory) String() string {
	switch c {
	case GeneratorParamField:
		return "GeneratorParam"
	case InputField:
		return "Input"
	case OutputField:
		return "Output"
	case LegacyParamField:
		return "LegacyParam"
	}
	return "InvalidFieldCategory"
}

type registration struct {
	field    any
	category FieldCategory
}

// InstanceRegistry associates declared field objects (parameters, inputs,
// outputs) with the generator instance that owns them, in declaration order.
// It holds bookkeeping only and never owns the fields themselves.
//
// One process-wide registry backs the package-level declaration helpers; an
// independent registry can be constructed for test isolation. All operations
// are serialized under one mutex and safe for concurrent use.
type InstanceRegistry struct {
	mu     sync.Mutex
	owners map[any][]registration
	fields map[any]any // field -> owner
}

// NewInstanceRegistry returns an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{
		owners: make(map[any][]registration),
		fields: make(map[any]any),
	}
}

var defaultInstances = NewInstanceRegistry()

// DefaultInstanceRegistry returns the process-wide registry used by
// Base.Configure.
func DefaultInstanceRegistry() *InstanceRegistry { return defaultInstances }

// Register associates field with owner under the given category. Registering
// the same field twice is an internal invariant violation.
func (r *InstanceRegistry) Register(field any, category FieldCategory, owner any) {
	if field == nil || owner == nil {
		internalErrorf("InstanceRegistry.Register with a nil field or owner")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, duplicate := r.fields[field]; duplicate {
		internalErrorf("field %p registered twice in the instance registry", field)
	}
	r.fields[field] = owner
	r.owners[owner] = append(r.owners[owner], registration{field: field, category: category})
	klog.V(2).Infof("instance registry: registered %s field %p for owner %p", category, field, owner)
}

// Unregister removes a previously registered field. Unregistering an unknown
// field is an internal invariant violation.
func (r *InstanceRegistry) Unregister(field any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, found := r.fields[field]
	if !found {
		internalErrorf("field %p is not registered in the instance registry", field)
	}
	delete(r.fields, field)
	regs := r.owners[owner]
	for i := range regs {
		if regs[i].field == field {
			r.owners[owner] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(r.owners[owner]) == 0 {
		delete(r.owners, owner)
	}
}

// InstancesOf returns every still-registered field of the given category
// belonging to owner, in registration order.
func (r *InstanceRegistry) InstancesOf(owner any, category FieldCategory) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fields []any
	for _, reg := range r.owners[owner] {
		if reg.category == category {
			fields = append(fields, reg.field)
		}
	}
	return fields
}
