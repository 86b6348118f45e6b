package evaluate

import (
	"testing"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateBoundaries(t *testing.T) {
	const limitMB = 100.0

	cases := []struct {
		predicted float64
		action    model.Action
		amount    float64
	}{
		{84.99, model.ActionSafe, 0},
		{85.0, model.ActionMonitor, 0},
		{89.99, model.ActionMonitor, 0},
		{90.0, model.ActionCaution, 0},
		{94.99, model.ActionCaution, 0},
		{95.0, model.ActionCleanup, 25},
		{150.0, model.ActionCleanup, 80},
	}

	for _, c := range cases {
		action, amount := Evaluate(c.predicted, limitMB)
		assert.Equal(t, c.action, action, "predicted=%v", c.predicted)
		assert.InDelta(t, c.amount, amount, 0.001, "predicted=%v", c.predicted)
	}
}

func TestEvaluateZeroOrNegativeLimitIsAlwaysSafe(t *testing.T) {
	action, amount := Evaluate(1000, 0)
	assert.Equal(t, model.ActionSafe, action)
	assert.Zero(t, amount)

	action, amount = Evaluate(1000, -5)
	assert.Equal(t, model.ActionSafe, action)
	assert.Zero(t, amount)
}
