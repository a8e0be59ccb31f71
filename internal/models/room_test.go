// internal/models/room_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseCanAdvanceTo(t *testing.T) {
	assert.True(t, PhaseVoting.CanAdvanceTo(PhaseLive))
	assert.True(t, PhaseLive.CanAdvanceTo(PhaseClosed))

	// One step at a time, forward only.
	assert.False(t, PhaseVoting.CanAdvanceTo(PhaseClosed))
	assert.False(t, PhaseLive.CanAdvanceTo(PhaseVoting))
	assert.False(t, PhaseClosed.CanAdvanceTo(PhaseVoting))
	assert.False(t, PhaseClosed.CanAdvanceTo(PhaseLive))
	assert.False(t, PhaseVoting.CanAdvanceTo(PhaseVoting))

	assert.False(t, Phase("PAUSED").CanAdvanceTo(PhaseLive))
	assert.False(t, PhaseVoting.CanAdvanceTo(Phase("PAUSED")))
}

func TestPhaseValid(t *testing.T) {
	assert.True(t, PhaseVoting.Valid())
	assert.True(t, PhaseLive.Valid())
	assert.True(t, PhaseClosed.Valid())
	assert.False(t, Phase("").Valid())
	assert.False(t, Phase("voting").Valid())
}
