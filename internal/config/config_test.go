package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validDoc = `hydra:
  job:
    chdir: true
  run:
    dir: ./outputs_gnn
max_epochs: 101
batch_size: 32
optimizer_params:
  betas: [0.9, 0.999]
  lr: 0.05
  weight_decay: 0.1
  gamma: 0.95
model:
  gnn:
    input_dim: 3
    edge_dim: 2
    hidden_dim: 64
    output_dim: 3
    num_layers: 3
`

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config_gnn.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeDoc(t, validDoc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.Hydra.Job.Chdir {
		t.Fatalf("hydra.job.chdir should be true")
	}
	if cfg.RunDir() != "./outputs_gnn" {
		t.Fatalf("run dir: %q", cfg.RunDir())
	}
	if cfg.MaxEpochs != 101 {
		t.Fatalf("max_epochs: %d", cfg.MaxEpochs)
	}
	if cfg.BatchSize != 32 {
		t.Fatalf("batch_size: %d", cfg.BatchSize)
	}
	if cfg.Optimizer.Betas != [2]float64{0.9, 0.999} {
		t.Fatalf("betas: %v", cfg.Optimizer.Betas)
	}
	if cfg.Optimizer.LR != 0.05 {
		t.Fatalf("lr: %v", cfg.Optimizer.LR)
	}
	if cfg.Optimizer.WeightDecay != 0.1 {
		t.Fatalf("weight_decay: %v", cfg.Optimizer.WeightDecay)
	}
	if cfg.Optimizer.Gamma != 0.95 {
		t.Fatalf("gamma: %v", cfg.Optimizer.Gamma)
	}
	gnn := cfg.Model.GNN
	if gnn.InputDim != 3 || gnn.EdgeDim != 2 || gnn.HiddenDim != 64 || gnn.OutputDim != 3 || gnn.NumLayers != 3 {
		t.Fatalf("gnn dims: %+v", gnn)
	}
}

func TestLoadIdempotent(t *testing.T) {
	path := writeDoc(t, validDoc)
	a, err := Load(path)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if a != b {
		t.Fatalf("loads differ: %+v vs %+v", a, b)
	}
}

func TestMissingKeys(t *testing.T) {
	cases := []struct {
		drop string // line prefix to remove from the document
		key  string
	}{
		{"max_epochs:", "max_epochs"},
		{"batch_size:", "batch_size"},
		{"  betas:", "optimizer_params.betas"},
		{"  lr:", "optimizer_params.lr"},
		{"  weight_decay:", "optimizer_params.weight_decay"},
		{"  gamma:", "optimizer_params.gamma"},
		{"    input_dim:", "model.gnn.input_dim"},
		{"    edge_dim:", "model.gnn.edge_dim"},
		{"    hidden_dim:", "model.gnn.hidden_dim"},
		{"    output_dim:", "model.gnn.output_dim"},
		{"    num_layers:", "model.gnn.num_layers"},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			var lines []string
			for _, line := range strings.Split(validDoc, "\n") {
				if strings.HasPrefix(line, tc.drop) {
					continue
				}
				lines = append(lines, line)
			}
			_, err := Load(writeDoc(t, strings.Join(lines, "\n")))
			var mfe *MissingFieldError
			if !errors.As(err, &mfe) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if mfe.Key != tc.key {
				t.Fatalf("expected key %q, got %q", tc.key, mfe.Key)
			}
		})
	}
}

func TestInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		replace [2]string
		key     string
	}{
		{"negative batch size", [2]string{"batch_size: 32", "batch_size: -1"}, "batch_size"},
		{"zero epochs", [2]string{"max_epochs: 101", "max_epochs: 0"}, "max_epochs"},
		{"fractional epochs", [2]string{"max_epochs: 101", "max_epochs: 10.5"}, "max_epochs"},
		{"beta out of range", [2]string{"betas: [0.9, 0.999]", "betas: [0.9, 1.5]"}, "optimizer_params.betas[1]"},
		{"beta at bound", [2]string{"betas: [0.9, 0.999]", "betas: [0.0, 0.999]"}, "optimizer_params.betas[0]"},
		{"betas wrong length", [2]string{"betas: [0.9, 0.999]", "betas: [0.9]"}, "optimizer_params.betas"},
		{"negative lr", [2]string{"lr: 0.05", "lr: -0.05"}, "optimizer_params.lr"},
		{"negative weight decay", [2]string{"weight_decay: 0.1", "weight_decay: -0.1"}, "optimizer_params.weight_decay"},
		{"gamma above one", [2]string{"gamma: 0.95", "gamma: 1.2"}, "optimizer_params.gamma"},
		{"zero hidden dim", [2]string{"hidden_dim: 64", "hidden_dim: 0"}, "model.gnn.hidden_dim"},
		{"negative layers", [2]string{"num_layers: 3", "num_layers: -3"}, "model.gnn.num_layers"},
		{"fractional input dim", [2]string{"input_dim: 3", "input_dim: 2.5"}, "model.gnn.input_dim"},
		{"nan lr", [2]string{"lr: 0.05", "lr: .nan"}, "optimizer_params.lr"},
		{"oversized epochs", [2]string{"max_epochs: 101", "max_epochs: 1e300"}, "max_epochs"},
		{"oversized hidden dim", [2]string{"hidden_dim: 64", "hidden_dim: 9223372036854775808"}, "model.gnn.hidden_dim"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := strings.Replace(validDoc, tc.replace[0], tc.replace[1], 1)
			if doc == validDoc {
				t.Fatalf("replacement %q not applied", tc.replace[0])
			}
			_, err := Load(writeDoc(t, doc))
			var ive *InvalidValueError
			if !errors.As(err, &ive) {
				t.Fatalf("expected InvalidValueError, got %v", err)
			}
			if ive.Key != tc.key {
				t.Fatalf("expected key %q, got %q", tc.key, ive.Key)
			}
		})
	}
}

func TestOversizedEpochsDoNotOverflow(t *testing.T) {
	doc := strings.Replace(validDoc, "max_epochs: 101", "max_epochs: 1e300", 1)
	cfg, err := Load(writeDoc(t, doc))
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("expected InvalidValueError, got %v", err)
	}
	if cfg.MaxEpochs != 0 {
		t.Fatalf("failed load must not materialize values, got max_epochs=%d", cfg.MaxEpochs)
	}
}

func TestTypeMismatchNamesKey(t *testing.T) {
	cases := []struct {
		name    string
		replace [2]string
		key     string
	}{
		{"string epochs", [2]string{"max_epochs: 101", "max_epochs: hello"}, "max_epochs"},
		{"string hidden dim", [2]string{"hidden_dim: 64", "hidden_dim: fast"}, "model.gnn.hidden_dim"},
		{"string beta element", [2]string{"betas: [0.9, 0.999]", "betas: [0.9, fast]"}, "optimizer_params.betas"},
		{"list lr", [2]string{"lr: 0.05", "lr: [0.05]"}, "optimizer_params.lr"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := strings.Replace(validDoc, tc.replace[0], tc.replace[1], 1)
			if doc == validDoc {
				t.Fatalf("replacement %q not applied", tc.replace[0])
			}
			_, err := Load(writeDoc(t, doc))
			var ive *InvalidValueError
			if !errors.As(err, &ive) {
				t.Fatalf("expected InvalidValueError, got %v", err)
			}
			if ive.Key != tc.key {
				t.Fatalf("expected key %q, got %q", tc.key, ive.Key)
			}
		})
	}
}

func TestGammaAtOneIsValid(t *testing.T) {
	doc := strings.Replace(validDoc, "gamma: 0.95", "gamma: 1.0", 1)
	cfg, err := Load(writeDoc(t, doc))
	if err != nil {
		t.Fatalf("gamma=1 should be accepted: %v", err)
	}
	if cfg.Optimizer.Gamma != 1.0 {
		t.Fatalf("gamma: %v", cfg.Optimizer.Gamma)
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	doc := validDoc + "learning_rate: 0.1\n"
	_, err := Load(writeDoc(t, doc))
	var ufe *UnknownFieldError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
	if !strings.Contains(ufe.Detail, "learning_rate") {
		t.Fatalf("detail should name the key: %s", ufe.Detail)
	}
}

func TestNestedUnknownKeyRejected(t *testing.T) {
	doc := strings.Replace(validDoc, "  lr: 0.05", "  lr: 0.05\n  momentum: 0.9", 1)
	_, err := Load(writeDoc(t, doc))
	var ufe *UnknownFieldError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
}

func TestFileAccessErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var fae *FileAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("expected FileAccessError for missing file, got %v", err)
	}

	_, err = Load(writeDoc(t, "max_epochs: [unclosed\n"))
	if !errors.As(err, &fae) {
		t.Fatalf("expected FileAccessError for broken syntax, got %v", err)
	}
}

func TestHydraDefaults(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(validDoc, "\n") {
		switch {
		case strings.HasPrefix(line, "hydra:"), strings.HasPrefix(line, "  job:"),
			strings.HasPrefix(line, "    chdir:"), strings.HasPrefix(line, "  run:"),
			strings.HasPrefix(line, "    dir:"):
			continue
		}
		lines = append(lines, line)
	}
	cfg, err := Load(writeDoc(t, strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("hydra block should be optional: %v", err)
	}
	if cfg.Hydra.Job.Chdir {
		t.Fatalf("chdir should default to false")
	}
	if cfg.RunDir() != "." {
		t.Fatalf("run dir should default to %q, got %q", ".", cfg.RunDir())
	}
}
