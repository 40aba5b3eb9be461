package nn

import (
	"math"
	"testing"

	"github.com/biromiro/swgnn/internal/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	inputs := [][]float64{
		{0.5, -0.3},
		{1.2, 0.7},
		{-0.8, 0.1},
		{0.3, 0.9},
	}
	targets := [][]float64{
		{0.1}, {0.4}, {-0.2}, {0.6},
	}
	g, err := graph.FromProfile(inputs, targets)
	if err != nil {
		t.Fatalf("from profile: %v", err)
	}
	return g
}

func testModel(t *testing.T) *GNN {
	t.Helper()
	m, err := New(Config{InputDim: 2, EdgeDim: 2, HiddenDim: 3, OutputDim: 1, NumLayers: 2, Seed: 7})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func TestNewRejectsBadDims(t *testing.T) {
	bad := []Config{
		{InputDim: 0, EdgeDim: 2, HiddenDim: 3, OutputDim: 1, NumLayers: 1},
		{InputDim: 2, EdgeDim: 2, HiddenDim: 3, OutputDim: 1, NumLayers: 0},
		{InputDim: 2, EdgeDim: -1, HiddenDim: 3, OutputDim: 1, NumLayers: 1},
	}
	for _, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Fatalf("config %+v should be rejected", cfg)
		}
	}
}

func TestForwardShape(t *testing.T) {
	m := testModel(t)
	g := testGraph(t)

	out, err := m.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(out) != g.NumNodes() {
		t.Fatalf("output rows: %d, expected %d", len(out), g.NumNodes())
	}
	for i, row := range out {
		if len(row) != 1 {
			t.Fatalf("output row %d width: %d", i, len(row))
		}
	}
}

func TestForwardDimMismatch(t *testing.T) {
	m := testModel(t)
	g, err := graph.FromProfile([][]float64{{1, 2, 3}, {4, 5, 6}}, nil)
	if err != nil {
		t.Fatalf("from profile: %v", err)
	}
	if _, err := m.Forward(g); err == nil {
		t.Fatalf("input width mismatch should fail")
	}
}

func TestDeterministicInit(t *testing.T) {
	cfg := Config{InputDim: 2, EdgeDim: 2, HiddenDim: 3, OutputDim: 1, NumLayers: 2, Seed: 42}
	a, _ := New(cfg)
	b, _ := New(cfg)

	sa, sb := a.StateDict(), b.StateDict()
	for name, wa := range sa {
		wb := sb[name]
		for i := range wa {
			if wa[i] != wb[i] {
				t.Fatalf("param %s differs at %d with the same seed", name, i)
			}
		}
	}
}

func TestStateDictRoundTrip(t *testing.T) {
	m := testModel(t)
	g := testGraph(t)
	want, err := m.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	other, err := New(Config{InputDim: 2, EdgeDim: 2, HiddenDim: 3, OutputDim: 1, NumLayers: 2, Seed: 99})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if err := other.LoadStateDict(m.StateDict()); err != nil {
		t.Fatalf("load state: %v", err)
	}
	got, err := other.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	for i := range want {
		if want[i][0] != got[i][0] {
			t.Fatalf("output %d differs after state round trip: %v vs %v", i, want[i][0], got[i][0])
		}
	}
}

func TestLoadStateDictMissingParam(t *testing.T) {
	m := testModel(t)
	state := m.StateDict()
	delete(state, "decoder.w")
	if err := m.LoadStateDict(state); err == nil {
		t.Fatalf("missing parameter should fail")
	}
}

// apply a full forward/MSE/backward pass and return the loss.
func lossFor(t *testing.T, m *GNN, g *graph.Graph) float64 {
	t.Helper()
	out, err := m.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	loss, _, err := MSE(out, g.Y)
	if err != nil {
		t.Fatalf("mse: %v", err)
	}
	m.cache = nil
	return loss
}

func TestBackwardMatchesNumericalGradient(t *testing.T) {
	m := testModel(t)
	g := testGraph(t)

	m.ZeroGrad()
	out, err := m.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	_, grad, err := MSE(out, g.Y)
	if err != nil {
		t.Fatalf("mse: %v", err)
	}
	if err := m.Backward(grad); err != nil {
		t.Fatalf("backward: %v", err)
	}

	const eps = 1e-6
	for _, p := range m.Params() {
		// Spot-check a few entries per parameter block.
		for _, j := range []int{0, len(p.W) / 2, len(p.W) - 1} {
			orig := p.W[j]
			p.W[j] = orig + eps
			up := lossFor(t, m, g)
			p.W[j] = orig - eps
			down := lossFor(t, m, g)
			p.W[j] = orig

			numeric := (up - down) / (2 * eps)
			analytic := p.G[j]
			diff := math.Abs(numeric - analytic)
			scale := math.Max(1, math.Max(math.Abs(numeric), math.Abs(analytic)))
			if diff/scale > 1e-4 {
				t.Fatalf("gradient mismatch for %s[%d]: analytic=%g numeric=%g", p.Name, j, analytic, numeric)
			}
		}
	}
}

func TestBackwardBeforeForward(t *testing.T) {
	m := testModel(t)
	if err := m.Backward([][]float64{{1}}); err == nil {
		t.Fatalf("backward without forward should fail")
	}
}

func TestMSE(t *testing.T) {
	loss, grad, err := MSE([][]float64{{1, 2}, {3, 4}}, [][]float64{{1, 0}, {3, 2}})
	if err != nil {
		t.Fatalf("mse: %v", err)
	}
	if loss != 2 {
		t.Fatalf("loss: %v, expected 2", loss)
	}
	// d/dpred = 2*(pred-target)/N with N=4.
	if grad[0][1] != 1 || grad[1][1] != 1 || grad[0][0] != 0 {
		t.Fatalf("grad: %v", grad)
	}

	if _, _, err := MSE([][]float64{{1}}, [][]float64{{1, 2}}); err == nil {
		t.Fatalf("width mismatch should fail")
	}
}
