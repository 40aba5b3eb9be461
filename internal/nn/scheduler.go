package nn

import "math"

// ExponentialLR decays the learning rate once per epoch:
// lr(epoch) = Initial * Gamma^epoch. Gamma = 1 keeps the rate constant.
type ExponentialLR struct {
	Initial float64
	Gamma   float64
}

// At returns the learning rate in effect for the given epoch (0-based).
func (s ExponentialLR) At(epoch int) float64 {
	return s.Initial * math.Pow(s.Gamma, float64(epoch))
}

// SchedulerState is the serializable schedule for checkpoints.
type SchedulerState struct {
	Initial float64 `json:"initial"`
	Gamma   float64 `json:"gamma"`
}

func (s ExponentialLR) State() SchedulerState {
	return SchedulerState{Initial: s.Initial, Gamma: s.Gamma}
}
