package ml

import "math"

// Calibration holds Platt scaling parameters fit against held-out data at
// training time. The slope is negative, which keeps the mapping strictly
// increasing: calibration reshapes confidence, never reorders verdicts.
type Calibration struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Apply maps a raw ensemble probability to a calibrated one via the Platt
// sigmoid 1 / (1 + exp(slope*p + intercept)), clamped to [0, 1].
func (c Calibration) Apply(p float64) float64 {
	calibrated := 1 / (1 + math.Exp(c.Slope*p+c.Intercept))
	if calibrated < 0 {
		return 0
	}
	if calibrated > 1 {
		return 1
	}
	return calibrated
}
