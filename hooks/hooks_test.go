package hooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Order []string
}

func TestRegistryBasic(t *testing.T) {
	registry := NewRegistry[*event]("test")
	assert.Equal(t, 0, registry.Count())

	registry.Register(func(e *event) error {
		e.Order = append(e.Order, "a")
		return nil
	})
	assert.Equal(t, 1, registry.Count())

	e := &event{}
	require.NoError(t, registry.Run(e))
	assert.Equal(t, []string{"a"}, e.Order)

	registry.Clear()
	assert.Equal(t, 0, registry.Count())
}

func TestRegistryPriority(t *testing.T) {
	registry := NewRegistry[*event]("test")

	add := func(name string) Hook[*event] {
		return func(e *event) error {
			e.Order = append(e.Order, name)
			return nil
		}
	}
	registry.RegisterWithPriority(add("p10"), 10)
	registry.RegisterWithPriority(add("p-5"), -5)
	registry.Register(add("p0-first"))
	registry.Register(add("p0-second"))

	e := &event{}
	require.NoError(t, registry.Run(e))
	assert.Equal(t, []string{"p-5", "p0-first", "p0-second", "p10"}, e.Order)
}

func TestRegistryErrorsAndPanics(t *testing.T) {
	registry := NewRegistry[*event]("test")
	boom := errors.New("boom")

	registry.Register(func(e *event) error { return boom })
	registry.Register(func(e *event) error { panic("kaboom") })
	registry.Register(func(e *event) error {
		e.Order = append(e.Order, "last")
		return nil
	})

	e := &event{}
	err := registry.Run(e)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, []string{"last"}, e.Order, "failing hooks must not stop later ones")
}
