package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/biromiro/swgnn/internal/graph"
	"github.com/biromiro/swgnn/internal/nn"
)

func buildState(t *testing.T) (*nn.GNN, *nn.AdamW, nn.ExponentialLR) {
	t.Helper()
	model, err := nn.New(nn.Config{InputDim: 2, EdgeDim: 2, HiddenDim: 3, OutputDim: 1, NumLayers: 1, Seed: 3})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	opt := nn.NewAdamW(nn.AdamWConfig{LR: 0.05, Beta1: 0.9, Beta2: 0.999, WeightDecay: 0.1})
	sched := nn.ExponentialLR{Initial: 0.05, Gamma: 0.95}
	return model, opt, sched
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	model, opt, sched := buildState(t)

	g, err := graph.FromProfile([][]float64{{1, 0}, {0, 1}, {1, 1}}, [][]float64{{0.2}, {0.1}, {0.3}})
	if err != nil {
		t.Fatalf("from profile: %v", err)
	}

	// Take one training step so the optimizer has non-trivial state.
	model.ZeroGrad()
	out, err := model.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	_, grad, err := nn.MSE(out, g.Y)
	if err != nil {
		t.Fatalf("mse: %v", err)
	}
	if err := model.Backward(grad); err != nil {
		t.Fatalf("backward: %v", err)
	}
	opt.Step(model.Params())

	path, err := Save(dir, Capture(5, model, opt, sched))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("checkpoint file: %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Epoch != 5 {
		t.Fatalf("epoch: %d", snap.Epoch)
	}

	restored, restoredOpt, restoredSched, err := Restore(snap, nn.AdamWConfig{LR: 0.05, Beta1: 0.9, Beta2: 0.999, WeightDecay: 0.1})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	// The restored model must produce identical predictions.
	want, err := model.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	got, err := restored.Forward(g)
	if err != nil {
		t.Fatalf("forward restored: %v", err)
	}
	for i := range want {
		if want[i][0] != got[i][0] {
			t.Fatalf("prediction %d differs: %v vs %v", i, want[i][0], got[i][0])
		}
	}

	if restoredOpt.State().Step != opt.State().Step {
		t.Fatalf("optimizer step: %d vs %d", restoredOpt.State().Step, opt.State().Step)
	}
	if restoredSched.Gamma != sched.Gamma || restoredSched.Initial != sched.Initial {
		t.Fatalf("scheduler: %+v", restoredSched)
	}
}

func TestLoadLatest(t *testing.T) {
	dir := t.TempDir()
	model, opt, sched := buildState(t)

	if _, err := Save(dir, Capture(1, model, opt, sched)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Save(dir, Capture(2, model, opt, sched)); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err := LoadLatest(dir)
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if snap.Epoch != 2 {
		t.Fatalf("latest epoch: %d", snap.Epoch)
	}
}

func TestLoadLatestMissing(t *testing.T) {
	if _, err := LoadLatest(t.TempDir()); err == nil {
		t.Fatalf("missing latest pointer should fail")
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("corrupt checkpoint should fail")
	}
}
