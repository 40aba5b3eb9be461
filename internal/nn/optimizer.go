package nn

import "math"

// Optimizer updates model parameters from their accumulated gradients.
type Optimizer interface {
	Step(params []*Param)
	Name() string
}

// AdamWConfig configures AdamW. Epsilon defaults to 1e-8 when zero.
type AdamWConfig struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Epsilon     float64
	WeightDecay float64
}

// AdamW is Adam with decoupled weight decay: the decay term scales the
// weights directly instead of being folded into the gradient.
type AdamW struct {
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	t           int
	m           map[string][]float64
	v           map[string][]float64
}

func NewAdamW(cfg AdamWConfig) *AdamW {
	eps := cfg.Epsilon
	if eps == 0 {
		eps = 1e-8
	}
	return &AdamW{
		lr:          cfg.LR,
		beta1:       cfg.Beta1,
		beta2:       cfg.Beta2,
		eps:         eps,
		weightDecay: cfg.WeightDecay,
		m:           make(map[string][]float64),
		v:           make(map[string][]float64),
	}
}

func (a *AdamW) Name() string { return "adamw" }

func (a *AdamW) LR() float64 { return a.lr }

// SetLR replaces the learning rate; the scheduler calls this between epochs.
func (a *AdamW) SetLR(lr float64) { a.lr = lr }

func (a *AdamW) Step(params []*Param) {
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, p := range params {
		m, ok := a.m[p.Name]
		if !ok {
			m = make([]float64, len(p.W))
			a.m[p.Name] = m
		}
		v, ok := a.v[p.Name]
		if !ok {
			v = make([]float64, len(p.W))
			a.v[p.Name] = v
		}

		for j := range p.W {
			if a.weightDecay != 0 {
				p.W[j] -= a.lr * a.weightDecay * p.W[j]
			}
			g := p.G[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g

			mHat := m[j] / bc1
			vHat := v[j] / bc2
			p.W[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// AdamWState is the serializable optimizer state for checkpoints.
type AdamWState struct {
	Step int                  `json:"step"`
	M    map[string][]float64 `json:"m"`
	V    map[string][]float64 `json:"v"`
}

func (a *AdamW) State() AdamWState {
	state := AdamWState{
		Step: a.t,
		M:    make(map[string][]float64, len(a.m)),
		V:    make(map[string][]float64, len(a.v)),
	}
	for name, m := range a.m {
		c := make([]float64, len(m))
		copy(c, m)
		state.M[name] = c
	}
	for name, v := range a.v {
		c := make([]float64, len(v))
		copy(c, v)
		state.V[name] = c
	}
	return state
}

func (a *AdamW) LoadState(state AdamWState) {
	a.t = state.Step
	a.m = make(map[string][]float64, len(state.M))
	a.v = make(map[string][]float64, len(state.V))
	for name, m := range state.M {
		c := make([]float64, len(m))
		copy(c, m)
		a.m[name] = c
	}
	for name, v := range state.V {
		c := make([]float64, len(v))
		copy(c, v)
		a.v[name] = c
	}
}
