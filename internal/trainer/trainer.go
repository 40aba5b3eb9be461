// Package trainer runs the training loop: shuffled minibatches of profile
// graphs through the model, AdamW updates, per-epoch learning-rate decay,
// a validation pass with denormalized result dumps, and checkpointing.
package trainer

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/biromiro/swgnn/internal/checkpoint"
	"github.com/biromiro/swgnn/internal/graph"
	"github.com/biromiro/swgnn/internal/nn"
	"github.com/biromiro/swgnn/internal/scale"
)

// Tracker receives per-epoch metrics. A nil Tracker disables tracking.
type Tracker interface {
	LogEpoch(ctx context.Context, epoch int, values map[string]float64) error
}

// Options controls one training run.
type Options struct {
	MaxEpochs     int
	BatchSize     int
	Seed          int64
	AlertEvery    int    // console epoch summary frequency; defaults to 10
	ResultsEvery  int    // validation result dump frequency; 0 disables
	CheckpointDir string // defaults to "checkpoints"
	OutputDir     string // destination for result dumps; defaults to "."
	Normalization []scale.VarInfo
	Quiet         bool
}

// EpochStats is one row of the training history.
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
	LR        float64
}

// Result summarizes a finished run.
type Result struct {
	Epochs     int
	FinalTrain float64
	FinalVal   float64
	History    []EpochStats
}

type Trainer struct {
	opts       Options
	model      *nn.GNN
	opt        *nn.AdamW
	sched      nn.ExponentialLR
	tracker    Tracker
	rng        *rand.Rand
	startEpoch int
}

func New(model *nn.GNN, opt *nn.AdamW, sched nn.ExponentialLR, opts Options, tracker Tracker) (*Trainer, error) {
	if opts.MaxEpochs < 1 {
		return nil, fmt.Errorf("trainer: max epochs must be >= 1, got %d", opts.MaxEpochs)
	}
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("trainer: batch size must be >= 1, got %d", opts.BatchSize)
	}
	if opts.AlertEvery == 0 {
		opts.AlertEvery = 10
	}
	if opts.CheckpointDir == "" {
		opts.CheckpointDir = "checkpoints"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Trainer{
		opts:    opts,
		model:   model,
		opt:     opt,
		sched:   sched,
		tracker: tracker,
		rng:     rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// SetStartEpoch resumes the epoch counter after a checkpoint restore.
func (t *Trainer) SetStartEpoch(epoch int) { t.startEpoch = epoch }

// Run trains on train and evaluates on val until MaxEpochs or context
// cancellation. val may be empty, which skips validation.
func (t *Trainer) Run(ctx context.Context, train, val []*graph.Graph) (*Result, error) {
	if len(train) == 0 {
		return nil, fmt.Errorf("trainer: no training data")
	}

	res := &Result{}
	for epoch := t.startEpoch; epoch < t.opts.MaxEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		lr := t.sched.At(epoch)
		t.opt.SetLR(lr)

		trainLoss, err := t.trainEpoch(train)
		if err != nil {
			return res, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		valLoss := 0.0
		if len(val) > 0 {
			valLoss, err = t.validate(val, epoch)
			if err != nil {
				return res, fmt.Errorf("epoch %d validation: %w", epoch, err)
			}
		}

		stats := EpochStats{Epoch: epoch, TrainLoss: trainLoss, ValLoss: valLoss, LR: lr}
		res.History = append(res.History, stats)
		res.Epochs = epoch + 1
		res.FinalTrain = trainLoss
		res.FinalVal = valLoss

		t.logEpoch(stats, len(val) > 0)

		if t.tracker != nil {
			values := map[string]float64{
				"loss_data":     trainLoss,
				"learning_rate": lr,
			}
			if len(val) > 0 {
				values["validation_error"] = valLoss
			}
			if err := t.tracker.LogEpoch(ctx, epoch, values); err != nil {
				return res, fmt.Errorf("epoch %d: log metrics: %w", epoch, err)
			}
		}

		if _, err := checkpoint.Save(t.opts.CheckpointDir, checkpoint.Capture(epoch, t.model, t.opt, t.sched)); err != nil {
			return res, err
		}
	}

	return res, nil
}

// trainEpoch runs one pass of shuffled minibatches and returns the
// dataset-weighted mean loss.
func (t *Trainer) trainEpoch(train []*graph.Graph) (float64, error) {
	perm := t.rng.Perm(len(train))
	total := 0.0

	for start := 0; start < len(perm); start += t.opts.BatchSize {
		end := start + t.opts.BatchSize
		if end > len(perm) {
			end = len(perm)
		}
		graphs := make([]*graph.Graph, 0, end-start)
		for _, idx := range perm[start:end] {
			graphs = append(graphs, train[idx])
		}
		batch, err := graph.Merge(graphs)
		if err != nil {
			return 0, err
		}

		t.model.ZeroGrad()
		out, err := t.model.Forward(batch)
		if err != nil {
			return 0, err
		}
		loss, grad, err := nn.MSE(out, batch.Y)
		if err != nil {
			return 0, err
		}
		if err := t.model.Backward(grad); err != nil {
			return 0, err
		}
		t.opt.Step(t.model.Params())

		total += loss * float64(batch.NumGraphs)
	}

	return total / float64(len(train)), nil
}

// validate computes the mean loss over val and periodically dumps
// denormalized predictions next to their targets.
func (t *Trainer) validate(val []*graph.Graph, epoch int) (float64, error) {
	total := 0.0
	dump := t.opts.ResultsEvery > 0 &&
		(epoch%t.opts.ResultsEvery == 0 || epoch == t.opts.MaxEpochs-1)

	var outvars, predvars [][][]float64
	for start := 0; start < len(val); start += t.opts.BatchSize {
		end := start + t.opts.BatchSize
		if end > len(val) {
			end = len(val)
		}
		batch, err := graph.Merge(val[start:end])
		if err != nil {
			return 0, err
		}

		out, err := t.model.Forward(batch)
		if err != nil {
			return 0, err
		}
		loss, _, err := nn.MSE(out, batch.Y)
		if err != nil {
			return 0, err
		}
		total += loss * float64(batch.NumGraphs)

		if dump {
			actual, err := graph.Split(batch.Y, batch.Batch, batch.NumGraphs)
			if err != nil {
				return 0, err
			}
			predicted, err := graph.Split(out, batch.Batch, batch.NumGraphs)
			if err != nil {
				return 0, err
			}
			outvars = append(outvars, actual...)
			predvars = append(predvars, predicted...)
		}
	}

	if dump {
		if err := t.writeResults(epoch, outvars, predvars); err != nil {
			return 0, err
		}
	}

	return total / float64(len(val)), nil
}

func (t *Trainer) logEpoch(stats EpochStats, hasVal bool) {
	if t.opts.Quiet {
		return
	}
	if stats.Epoch%t.opts.AlertEvery != 0 && stats.Epoch != t.opts.MaxEpochs-1 {
		return
	}
	fmt.Fprintf(os.Stdout, "[train] epoch %d/%d loss_data=%.6g lr=%.6g\n",
		stats.Epoch, t.opts.MaxEpochs, stats.TrainLoss, stats.LR)
	if hasVal {
		fmt.Fprintf(os.Stdout, "[valid] epoch %d error=%.6g\n", stats.Epoch, stats.ValLoss)
	}
}
