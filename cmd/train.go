package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/biromiro/swgnn/internal/checkpoint"
	"github.com/biromiro/swgnn/internal/config"
	"github.com/biromiro/swgnn/internal/graph"
	"github.com/biromiro/swgnn/internal/mlflow"
	"github.com/biromiro/swgnn/internal/models"
	"github.com/biromiro/swgnn/internal/nn"
	"github.com/biromiro/swgnn/internal/parser"
	"github.com/biromiro/swgnn/internal/scale"
	"github.com/biromiro/swgnn/internal/trainer"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a forecasting model",
	Long:  "Train the GNN on a profile dataset according to a YAML run configuration",
	RunE:  runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("config", "", "Run configuration file (required)")
	trainCmd.Flags().String("train-data", "", "Training profiles file (required)")
	trainCmd.Flags().String("val-data", "", "Validation profiles file")
	trainCmd.Flags().Int64("seed", 42, "Weight initialization and shuffle seed")
	trainCmd.Flags().Bool("resume", false, "Resume from the latest checkpoint in the run directory")
	trainCmd.Flags().Bool("quiet", false, "Suppress per-epoch console output")
	trainCmd.MarkFlagRequired("config")
	trainCmd.MarkFlagRequired("train-data")
}

func runTrain(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	trainPath, _ := cmd.Flags().GetString("train-data")
	valPath, _ := cmd.Flags().GetString("val-data")
	seed, _ := cmd.Flags().GetInt64("seed")
	resume, _ := cmd.Flags().GetBool("resume")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// resolve before a possible chdir into the run directory
	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if trainPath, err = filepath.Abs(trainPath); err != nil {
		return err
	}
	if valPath != "" {
		if valPath, err = filepath.Abs(valPath); err != nil {
			return err
		}
	}
	if err := enterRunDir(cfg); err != nil {
		return err
	}

	train, norm, err := loadDataset(trainPath, cfg, true)
	if err != nil {
		return fmt.Errorf("training data: %w", err)
	}
	var val []*graph.Graph
	if valPath != "" {
		val, _, err = loadDataset(valPath, cfg, true)
		if err != nil {
			return fmt.Errorf("validation data: %w", err)
		}
	}

	model, opt, sched, startEpoch, err := buildTrainState(cfg, seed, resume)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tracker, finish, err := setupTracking(ctx, cfg)
	if err != nil {
		return err
	}

	tr, err := trainer.New(model, opt, sched, trainer.Options{
		MaxEpochs:     cfg.MaxEpochs,
		BatchSize:     cfg.BatchSize,
		Seed:          seed,
		ResultsEvery:  10,
		CheckpointDir: checkpointDir,
		OutputDir:     ".",
		Normalization: norm,
		Quiet:         quiet,
	}, tracker)
	if err != nil {
		return err
	}
	tr.SetStartEpoch(startEpoch)

	res, runErr := tr.Run(ctx, train, val)
	if finish != nil {
		if err := finish(runErr, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("trained %d epochs, final loss %.6g\n", res.Epochs, res.FinalTrain)
	return nil
}

const checkpointDir = "checkpoints"

// enterRunDir applies the working-directory hint from the configuration:
// the run directory is created and, when requested, becomes the process
// working directory so all outputs land inside it.
func enterRunDir(cfg config.RunConfig) error {
	dir := cfg.RunDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir %s: %w", dir, err)
	}
	if cfg.Hydra.Job.Chdir {
		if err := os.Chdir(dir); err != nil {
			return fmt.Errorf("enter run dir %s: %w", dir, err)
		}
	}
	return nil
}

// loadDataset parses a profiles file, checks it against the model
// dimensions, and converts each profile into a chain graph.
func loadDataset(path string, cfg config.RunConfig, requireTargets bool) ([]*graph.Graph, []scale.VarInfo, error) {
	file, err := parser.ParseProfilesFile(path)
	if err != nil {
		return nil, nil, err
	}
	gnn := cfg.Model.GNN
	if err := file.CheckDims(gnn.InputDim, gnn.OutputDim); err != nil {
		return nil, nil, err
	}

	graphs := make([]*graph.Graph, 0, len(file.Profiles))
	for i, p := range file.Profiles {
		if requireTargets && p.Targets == nil {
			return nil, nil, fmt.Errorf("profile %d has no targets", i)
		}
		g, err := graph.FromProfile(p.Inputs, p.Targets)
		if err != nil {
			return nil, nil, fmt.Errorf("profile %d: %w", i, err)
		}
		if g.EdgeDim() != gnn.EdgeDim {
			return nil, nil, fmt.Errorf("profile %d: edge features have dim %d, model expects edge_dim %d", i, g.EdgeDim(), gnn.EdgeDim)
		}
		graphs = append(graphs, g)
	}
	return graphs, file.Normalization, nil
}

// buildTrainState creates a fresh model, optimizer, and schedule from the
// configuration, or restores all three from the latest checkpoint.
func buildTrainState(cfg config.RunConfig, seed int64, resume bool) (*nn.GNN, *nn.AdamW, nn.ExponentialLR, int, error) {
	gnn := cfg.Model.GNN
	op := cfg.Optimizer
	optCfg := nn.AdamWConfig{
		LR:          op.LR,
		Beta1:       op.Betas[0],
		Beta2:       op.Betas[1],
		WeightDecay: op.WeightDecay,
	}

	if resume {
		snap, err := checkpoint.LoadLatest(checkpointDir)
		if err != nil {
			return nil, nil, nn.ExponentialLR{}, 0, err
		}
		model, opt, sched, err := checkpoint.Restore(snap, optCfg)
		if err != nil {
			return nil, nil, nn.ExponentialLR{}, 0, err
		}
		return model, opt, sched, snap.Epoch + 1, nil
	}

	model, err := nn.New(nn.Config{
		InputDim:  gnn.InputDim,
		EdgeDim:   gnn.EdgeDim,
		HiddenDim: gnn.HiddenDim,
		OutputDim: gnn.OutputDim,
		NumLayers: gnn.NumLayers,
		Seed:      seed,
	})
	if err != nil {
		return nil, nil, nn.ExponentialLR{}, 0, err
	}
	opt := nn.NewAdamW(optCfg)
	sched := nn.ExponentialLR{Initial: op.LR, Gamma: op.Gamma}
	return model, opt, sched, 0, nil
}

// runStatusFor maps a training outcome onto the tracked run's end status.
// An interrupted run is reported as killed, not failed.
func runStatusFor(runErr error) models.RunStatus {
	switch {
	case runErr == nil:
		return models.RunStatusFinished
	case errors.Is(runErr, context.Canceled):
		return models.RunStatusKilled
	default:
		return models.RunStatusFailed
	}
}

// runTracker adapts the MLflow client to the trainer's metric sink.
type runTracker struct {
	client *mlflow.Client
	runID  string
}

func (r *runTracker) LogEpoch(ctx context.Context, epoch int, values map[string]float64) error {
	return r.client.LogEpoch(ctx, r.runID, epoch, values)
}

// setupTracking starts an MLflow run when tracking is configured. The
// returned finish func ends the run and uploads the final checkpoint and
// the configuration file as artifacts.
func setupTracking(ctx context.Context, cfg config.RunConfig) (trainer.Tracker, func(error, string) error, error) {
	tcfg := mlflow.TrackingFromViper()
	if !tcfg.Enabled() {
		return nil, nil, nil
	}
	if err := tcfg.Validate(); err != nil {
		return nil, nil, err
	}
	client, err := mlflow.NewClient(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	runName := "swgnn-" + time.Now().Format("20060102-150405")
	info, err := client.CreateRun(ctx, &models.RunSpec{
		ExperimentID: &tcfg.ExperimentID,
		RunName:      &runName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	if err := client.LogParams(ctx, info.RunID, models.ConfigParams(cfg)); err != nil {
		return nil, nil, fmt.Errorf("failed to log params: %w", err)
	}
	fmt.Printf("tracking run %s\n", info.RunID)

	finish := func(runErr error, configPath string) error {
		// artifact upload and status update run even on cancellation
		fctx := context.Background()

		status := runStatusFor(runErr)

		files := map[string]string{configPath: "config.yaml"}
		if path, err := checkpoint.LatestPath(checkpointDir); err == nil {
			files[path] = "model/checkpoint.json"
		}
		if err := client.UploadArtifacts(fctx, info.RunID, files); err != nil {
			return fmt.Errorf("upload artifacts: %w", err)
		}
		return client.UpdateRun(fctx, info.RunID, status)
	}
	return &runTracker{client: client, runID: info.RunID}, finish, nil
}
