package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

type lightState string

const (
	red    lightState = "red"
	green  lightState = "green"
	yellow lightState = "yellow"
	off    lightState = "off"
)

func newLight() *Machine[lightState] {
	return NewMachine("light", map[lightState][]lightState{
		red:    {green},
		green:  {yellow, off},
		yellow: {red, off},
		off:    {},
	})
}

func TestMachine_CanTransition(t *testing.T) {
	m := newLight()

	assert.True(t, m.CanTransition(red, green))
	assert.True(t, m.CanTransition(green, off))
	assert.False(t, m.CanTransition(red, yellow))
	assert.False(t, m.CanTransition(off, red))
	assert.False(t, m.CanTransition("blue", red))
}

func TestMachine_IsTerminal(t *testing.T) {
	m := newLight()

	assert.True(t, m.IsTerminal(off))
	assert.False(t, m.IsTerminal(red))
	assert.False(t, m.IsTerminal("blue"), "unknown states are not terminal")
}

func TestMachine_Validate(t *testing.T) {
	m := newLight()

	assert.NoError(t, m.Validate(red, green))
	assert.ErrorIs(t, m.Validate(red, yellow), apperrors.ErrInvalidTransition)
	assert.ErrorIs(t, m.Validate(red, red), apperrors.ErrInvalidTransition)
	assert.ErrorIs(t, m.Validate(off, red), apperrors.ErrAlreadyTerminal)
	assert.ErrorIs(t, m.Validate(off, "blue"), apperrors.ErrAlreadyTerminal)
	assert.ErrorIs(t, m.Validate(red, "blue"), apperrors.ErrValidation)
}

func TestMachine_NextAndStates(t *testing.T) {
	m := newLight()

	assert.ElementsMatch(t, []lightState{yellow, off}, m.Next(green))
	assert.Empty(t, m.Next(off))
	assert.Len(t, m.States(), 4)
	assert.Equal(t, "light", m.Entity())
}

func TestMachine_Recheck(t *testing.T) {
	m := newLight()

	// another writer turned the light off
	assert.ErrorIs(t, m.Recheck(off, green), apperrors.ErrAlreadyTerminal)
	// another writer moved red -> green, green -> yellow is still allowed
	assert.ErrorIs(t, m.Recheck(green, yellow), apperrors.ErrConflict)
	assert.ErrorIs(t, m.Recheck(green, red), apperrors.ErrInvalidTransition)
}
