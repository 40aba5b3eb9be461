// Package config loads and validates the run configuration that governs a
// single training invocation. The file is a nested hydra-style YAML document;
// Load parses it into an immutable RunConfig value and rejects malformed
// input before any model, optimizer, or dataset is constructed.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// HydraConfig carries the working-directory hint for the run. The loader
// does not apply it; the driver changes directory before writing outputs.
type HydraConfig struct {
	Job JobConfig
	Run RunDirConfig
}

type JobConfig struct {
	Chdir bool
}

type RunDirConfig struct {
	Dir string
}

// OptimizerParams configures a moment-based optimizer and its per-epoch
// learning-rate decay.
type OptimizerParams struct {
	Betas       [2]float64
	LR          float64
	WeightDecay float64
	Gamma       float64
}

// GNNConfig describes the model dimensionality.
type GNNConfig struct {
	InputDim  int
	EdgeDim   int
	HiddenDim int
	OutputDim int
	NumLayers int
}

type ModelConfig struct {
	GNN GNNConfig
}

// RunConfig is the full run configuration. It is returned by value and is
// never mutated after load, so any number of goroutines may read it
// concurrently without synchronization.
type RunConfig struct {
	Hydra     HydraConfig
	MaxEpochs int
	BatchSize int
	Optimizer OptimizerParams
	Model     ModelConfig
}

// RunDir returns the output directory for run artifacts.
func (c RunConfig) RunDir() string {
	return c.Hydra.Run.Dir
}

// rawConfig mirrors the document shape with pointer fields so that missing
// keys are distinguishable from zero values. Numeric scalars decode as
// float64 so integer fields can be range- and integrality-checked with a
// precise error instead of a YAML type mismatch.
type rawConfig struct {
	Hydra *struct {
		Job *struct {
			Chdir *bool `yaml:"chdir"`
		} `yaml:"job"`
		Run *struct {
			Dir *string `yaml:"dir"`
		} `yaml:"run"`
	} `yaml:"hydra"`
	MaxEpochs       *float64 `yaml:"max_epochs"`
	BatchSize       *float64 `yaml:"batch_size"`
	OptimizerParams *struct {
		Betas       []float64 `yaml:"betas"`
		LR          *float64  `yaml:"lr"`
		WeightDecay *float64  `yaml:"weight_decay"`
		Gamma       *float64  `yaml:"gamma"`
	} `yaml:"optimizer_params"`
	Model *struct {
		GNN *struct {
			InputDim  *float64 `yaml:"input_dim"`
			EdgeDim   *float64 `yaml:"edge_dim"`
			HiddenDim *float64 `yaml:"hidden_dim"`
			OutputDim *float64 `yaml:"output_dim"`
			NumLayers *float64 `yaml:"num_layers"`
		} `yaml:"gnn"`
	} `yaml:"model"`
}

// Load parses the YAML document at path into a RunConfig. Validation runs
// in two phases, failing fast on the first violation: required keys first
// (MissingFieldError), then type/range constraints per field
// (InvalidValueError). Unrecognized keys are rejected (UnknownFieldError).
// On any failure no partial RunConfig is returned.
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, &FileAccessError{Path: path, Err: err}
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if te, ok := err.(*yaml.TypeError); ok {
			return RunConfig{}, classifyTypeError(te, data)
		}
		return RunConfig{}, &FileAccessError{Path: path, Err: err}
	}

	return build(raw)
}

// classifyTypeError splits yaml.v3 decode failures into unknown-key
// rejections and per-field value mismatches. Field mismatch messages only
// carry a line number, so the offending dotted key is recovered by walking
// the document tree back to the node on that line.
func classifyTypeError(te *yaml.TypeError, data []byte) error {
	for _, msg := range te.Errors {
		if strings.Contains(msg, "not found in type") {
			return &UnknownFieldError{Detail: msg}
		}
	}
	detail := te.Errors[0]
	if key, node := nodeForError(detail, data); key != "" {
		value := node.Value
		if value == "" {
			value = detail
		}
		return &InvalidValueError{Key: key, Value: value, Constraint: "must match the field's declared type"}
	}
	return &InvalidValueError{Key: "", Value: detail, Constraint: "value does not match the schema"}
}

// nodeForError resolves a "line N: cannot unmarshal ..." message to the
// dotted key and value node at that line.
func nodeForError(msg string, data []byte) (string, *yaml.Node) {
	rest, ok := strings.CutPrefix(msg, "line ")
	if !ok {
		return "", nil
	}
	numEnd := strings.IndexByte(rest, ':')
	if numEnd < 0 {
		return "", nil
	}
	line, err := strconv.Atoi(rest[:numEnd])
	if err != nil {
		return "", nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil
	}
	return keyAtLine(&doc, line, "")
}

// keyAtLine walks mappings depth-first and returns the dotted path of the
// first non-mapping value found on the given line.
func keyAtLine(node *yaml.Node, line int, prefix string) (string, *yaml.Node) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			if key, n := keyAtLine(c, line, prefix); key != "" {
				return key, n
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			key := k.Value
			if prefix != "" {
				key = prefix + "." + k.Value
			}
			if v.Kind == yaml.MappingNode {
				if found, n := keyAtLine(v, line, key); found != "" {
					return found, n
				}
				continue
			}
			if v.Line == line || k.Line == line {
				return key, v
			}
			if v.Kind == yaml.SequenceNode {
				for _, item := range v.Content {
					if item.Line == line {
						return key, item
					}
				}
			}
		}
	}
	return "", nil
}

func build(raw rawConfig) (RunConfig, error) {
	if err := checkRequired(raw); err != nil {
		return RunConfig{}, err
	}

	var cfg RunConfig

	// Optional hydra block, defaulted when absent.
	cfg.Hydra.Run.Dir = "."
	if raw.Hydra != nil {
		if raw.Hydra.Job != nil && raw.Hydra.Job.Chdir != nil {
			cfg.Hydra.Job.Chdir = *raw.Hydra.Job.Chdir
		}
		if raw.Hydra.Run != nil && raw.Hydra.Run.Dir != nil {
			if *raw.Hydra.Run.Dir == "" {
				return RunConfig{}, &InvalidValueError{Key: "hydra.run.dir", Value: "", Constraint: "must be a non-empty path"}
			}
			cfg.Hydra.Run.Dir = *raw.Hydra.Run.Dir
		}
	}

	var err error
	if cfg.MaxEpochs, err = positiveInt("max_epochs", *raw.MaxEpochs); err != nil {
		return RunConfig{}, err
	}
	if cfg.BatchSize, err = positiveInt("batch_size", *raw.BatchSize); err != nil {
		return RunConfig{}, err
	}

	op := raw.OptimizerParams
	if len(op.Betas) != 2 {
		return RunConfig{}, &InvalidValueError{
			Key:        "optimizer_params.betas",
			Value:      op.Betas,
			Constraint: fmt.Sprintf("must have exactly 2 elements, got %d", len(op.Betas)),
		}
	}
	for i, b := range op.Betas {
		if math.IsNaN(b) || math.IsInf(b, 0) || b <= 0 || b >= 1 {
			return RunConfig{}, &InvalidValueError{
				Key:        fmt.Sprintf("optimizer_params.betas[%d]", i),
				Value:      b,
				Constraint: "must be in the open interval (0, 1)",
			}
		}
		cfg.Optimizer.Betas[i] = b
	}
	if cfg.Optimizer.LR, err = positiveFloat("optimizer_params.lr", *op.LR); err != nil {
		return RunConfig{}, err
	}
	if err := checkFinite("optimizer_params.weight_decay", *op.WeightDecay); err != nil {
		return RunConfig{}, err
	}
	if *op.WeightDecay < 0 {
		return RunConfig{}, &InvalidValueError{Key: "optimizer_params.weight_decay", Value: *op.WeightDecay, Constraint: "must be >= 0"}
	}
	cfg.Optimizer.WeightDecay = *op.WeightDecay
	if err := checkFinite("optimizer_params.gamma", *op.Gamma); err != nil {
		return RunConfig{}, err
	}
	if *op.Gamma <= 0 || *op.Gamma > 1 {
		return RunConfig{}, &InvalidValueError{Key: "optimizer_params.gamma", Value: *op.Gamma, Constraint: "must be in the half-open interval (0, 1]"}
	}
	cfg.Optimizer.Gamma = *op.Gamma

	gnn := raw.Model.GNN
	dims := []struct {
		key string
		val float64
		dst *int
	}{
		{"model.gnn.input_dim", *gnn.InputDim, &cfg.Model.GNN.InputDim},
		{"model.gnn.edge_dim", *gnn.EdgeDim, &cfg.Model.GNN.EdgeDim},
		{"model.gnn.hidden_dim", *gnn.HiddenDim, &cfg.Model.GNN.HiddenDim},
		{"model.gnn.output_dim", *gnn.OutputDim, &cfg.Model.GNN.OutputDim},
		{"model.gnn.num_layers", *gnn.NumLayers, &cfg.Model.GNN.NumLayers},
	}
	for _, d := range dims {
		n, err := positiveInt(d.key, d.val)
		if err != nil {
			return RunConfig{}, err
		}
		*d.dst = n
	}

	return cfg, nil
}

// checkRequired walks the required keys in dotted order and reports the
// first one that is absent.
func checkRequired(raw rawConfig) error {
	missing := func(key string) error { return &MissingFieldError{Key: key} }

	if raw.MaxEpochs == nil {
		return missing("max_epochs")
	}
	if raw.BatchSize == nil {
		return missing("batch_size")
	}
	op := raw.OptimizerParams
	if op == nil {
		return missing("optimizer_params")
	}
	if op.Betas == nil {
		return missing("optimizer_params.betas")
	}
	if op.LR == nil {
		return missing("optimizer_params.lr")
	}
	if op.WeightDecay == nil {
		return missing("optimizer_params.weight_decay")
	}
	if op.Gamma == nil {
		return missing("optimizer_params.gamma")
	}
	if raw.Model == nil {
		return missing("model")
	}
	gnn := raw.Model.GNN
	if gnn == nil {
		return missing("model.gnn")
	}
	if gnn.InputDim == nil {
		return missing("model.gnn.input_dim")
	}
	if gnn.EdgeDim == nil {
		return missing("model.gnn.edge_dim")
	}
	if gnn.HiddenDim == nil {
		return missing("model.gnn.hidden_dim")
	}
	if gnn.OutputDim == nil {
		return missing("model.gnn.output_dim")
	}
	if gnn.NumLayers == nil {
		return missing("model.gnn.num_layers")
	}
	return nil
}

func checkFinite(key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidValueError{Key: key, Value: v, Constraint: "must be finite"}
	}
	return nil
}

func positiveFloat(key string, v float64) (float64, error) {
	if err := checkFinite(key, v); err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, &InvalidValueError{Key: key, Value: v, Constraint: "must be > 0"}
	}
	return v, nil
}

func positiveInt(key string, v float64) (int, error) {
	if err := checkFinite(key, v); err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, &InvalidValueError{Key: key, Value: v, Constraint: "must be an integer"}
	}
	if v < 1 {
		return 0, &InvalidValueError{Key: key, Value: v, Constraint: "must be a positive integer"}
	}
	// int(v) overflows silently past this point
	if v > math.MaxInt32 {
		return 0, &InvalidValueError{Key: key, Value: v, Constraint: fmt.Sprintf("must be at most %d", math.MaxInt32)}
	}
	return int(v), nil
}
