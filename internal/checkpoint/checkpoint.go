// Package checkpoint persists training state between epochs: model
// weights, optimizer moments, and the learning-rate schedule, one JSON
// file per epoch with a pointer to the most recent one.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/biromiro/swgnn/internal/nn"
)

const latestFile = "LATEST"

// Snapshot is the full state needed to resume a run after the given epoch.
type Snapshot struct {
	Epoch     int                  `json:"epoch"`
	SavedAt   time.Time            `json:"saved_at"`
	Model     nn.Config            `json:"model"`
	State     map[string][]float64 `json:"state"`
	Optimizer nn.AdamWState        `json:"optimizer"`
	Scheduler nn.SchedulerState    `json:"scheduler"`
}

// Capture assembles a snapshot of the current training state.
func Capture(epoch int, model *nn.GNN, opt *nn.AdamW, sched nn.ExponentialLR) *Snapshot {
	return &Snapshot{
		Epoch:     epoch,
		SavedAt:   time.Now(),
		Model:     model.Config(),
		State:     model.StateDict(),
		Optimizer: opt.State(),
		Scheduler: sched.State(),
	}
}

// Save writes the snapshot under dir and updates the LATEST pointer.
// Returns the path of the written checkpoint.
func Save(dir string, snap *Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("checkpoint: create dir: %w", err)
	}

	name := fmt.Sprintf("checkpoint_epoch_%04d.json", snap.Epoch)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("checkpoint: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("checkpoint: write %s: %w", path, err)
	}
	if err := os.WriteFile(filepath.Join(dir, latestFile), []byte(name+"\n"), 0644); err != nil {
		return "", fmt.Errorf("checkpoint: update latest pointer: %w", err)
	}
	return path, nil
}

// Load reads one checkpoint file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", path, err)
	}
	return &snap, nil
}

// LatestPath resolves the LATEST pointer in dir to a checkpoint path.
func LatestPath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, latestFile))
	if err != nil {
		return "", fmt.Errorf("checkpoint: no latest checkpoint in %s: %w", dir, err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", fmt.Errorf("checkpoint: empty latest pointer in %s", dir)
	}
	return filepath.Join(dir, name), nil
}

// LoadLatest resolves the LATEST pointer in dir and loads that checkpoint.
func LoadLatest(dir string) (*Snapshot, error) {
	path, err := LatestPath(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Restore rebuilds the model, optimizer, and schedule recorded in the
// snapshot. The optimizer is created with the given base hyperparameters
// and then overlaid with the saved moments.
func Restore(snap *Snapshot, optCfg nn.AdamWConfig) (*nn.GNN, *nn.AdamW, nn.ExponentialLR, error) {
	model, err := nn.New(snap.Model)
	if err != nil {
		return nil, nil, nn.ExponentialLR{}, fmt.Errorf("checkpoint: rebuild model: %w", err)
	}
	if err := model.LoadStateDict(snap.State); err != nil {
		return nil, nil, nn.ExponentialLR{}, fmt.Errorf("checkpoint: restore weights: %w", err)
	}

	opt := nn.NewAdamW(optCfg)
	opt.LoadState(snap.Optimizer)

	sched := nn.ExponentialLR{Initial: snap.Scheduler.Initial, Gamma: snap.Scheduler.Gamma}
	return model, opt, sched, nil
}
