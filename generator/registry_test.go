package generator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fish2000/halogen/pipe"
)

type noopGenerator struct {
	Base
}

func (g *noopGenerator) Generate() {}

func newNoopFactory(instances *InstanceRegistry) Factory {
	return func(ctx *Context) Generator {
		g := &noopGenerator{}
		g.ConfigureWith(ctx, g, instances)
		return g
	}
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	registry := NewRegistry()
	instances := NewInstanceRegistry()
	registry.Register("brighten", newNoopFactory(instances))
	registry.Register("blur", newNoopFactory(instances))
	require.Equal(t, []string{"blur", "brighten"}, registry.Names())

	g := registry.Create("blur", NewContext(pipe.HostTarget()))
	require.NotNil(t, g)
	require.Equal(t, "blur", BaseOf(g).RegisteredName())
	require.Equal(t, "blur", BaseOf(g).StubName())
}

func TestRegistryDuplicateName(t *testing.T) {
	registry := NewRegistry()
	registry.Register("blur", newNoopFactory(NewInstanceRegistry()))
	e := catchUserError(t, func() { registry.Register("blur", newNoopFactory(NewInstanceRegistry())) })
	require.Contains(t, e.Error(), "duplicate generator name")
}

func TestRegistryInvalidName(t *testing.T) {
	registry := NewRegistry()
	catchUserError(t, func() { registry.Register("_bad", newNoopFactory(NewInstanceRegistry())) })
	catchInternalError(t, func() { registry.Register("ok", nil) })
}

func TestRegistryUnknownName(t *testing.T) {
	registry := NewRegistry()
	registry.Register("blur", newNoopFactory(NewInstanceRegistry()))
	e := catchUserError(t, func() { registry.Create("sharpen", NewContext(pipe.HostTarget())) })
	require.Contains(t, e.Error(), `generator not found: "sharpen"`)
	require.Contains(t, e.Error(), "blur")
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	registry.Register("blur", newNoopFactory(NewInstanceRegistry()))
	registry.Unregister("blur")
	require.Empty(t, registry.Names())
	catchUserError(t, func() { registry.Unregister("blur") })
	catchUserError(t, func() { registry.Create("blur", NewContext(pipe.HostTarget())) })

	// The name is free for re-registration.
	registry.Register("blur", newNoopFactory(NewInstanceRegistry()))
}
