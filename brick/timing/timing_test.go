package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepBudget(t *testing.T) {
	// ~16.74ms at 1x is one frame worth of cycles
	budget := StepBudget(16.742, 1.0)
	assert.InDelta(t, CyclesPerFrame, budget, 16)

	// clamped at the per-call maximum
	assert.Equal(t, MaxStepCycles, StepBudget(10000, 1.0))
	assert.Equal(t, MaxStepCycles, StepBudget(100, 8.0))

	// degenerate inputs
	assert.Equal(t, 0, StepBudget(0, 1.0))
	assert.Equal(t, 0, StepBudget(-5, 1.0))
	assert.Equal(t, 0, StepBudget(10, 0))
}

func TestTargetFPS(t *testing.T) {
	assert.InDelta(t, 59.7275, TargetFPS(), 0.001)
}
