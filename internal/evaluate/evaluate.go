// Package evaluate maps a predicted usage figure and a capacity limit to a
// governance action and, when cleanup is warranted, the MB that must be
// freed to reach the 70% recovery target.
package evaluate

import "github.com/jgalley/fifoguard/internal/model"

// recoveryTargetFraction is the hard-coded fraction of limit_mb the
// Cleanup action aims to recover down to. It is independent of any
// caller-supplied target fraction used elsewhere (e.g. FifoCleanup).
const recoveryTargetFraction = 0.70

// thresholds, as percentages of limit_mb.
const (
	monitorThresholdPct = 85.0
	cautionThresholdPct = 90.0
	cleanupThresholdPct = 95.0
)

// Evaluate returns the action dictated by predictedMB against limitMB, and
// the amount (MB) that should be freed when the action is Cleanup (zero
// otherwise).
func Evaluate(predictedMB, limitMB float64) (model.Action, float64) {
	if limitMB <= 0 {
		return model.ActionSafe, 0
	}

	pct := (predictedMB / limitMB) * 100.0

	switch {
	case pct < monitorThresholdPct:
		return model.ActionSafe, 0
	case pct < cautionThresholdPct:
		return model.ActionMonitor, 0
	case pct < cleanupThresholdPct:
		return model.ActionCaution, 0
	default:
		target := limitMB * recoveryTargetFraction
		amount := predictedMB - target
		if amount < 0 {
			amount = 0
		}
		return model.ActionCleanup, amount
	}
}
