package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/biromiro/swgnn/internal/checkpoint"
	"github.com/biromiro/swgnn/internal/config"
	"github.com/biromiro/swgnn/internal/nn"
	"github.com/biromiro/swgnn/internal/scale"
	"github.com/biromiro/swgnn/internal/trainer"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run inference with a trained model",
	Long:  "Load a checkpoint and predict solar wind properties for a profile dataset",
	RunE:  runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().String("config", "", "Run configuration file (required)")
	predictCmd.Flags().String("data", "", "Profiles file to predict on (required)")
	predictCmd.Flags().String("checkpoint", "", "Checkpoint file (default: latest in the run directory)")
	predictCmd.Flags().String("output", "predictions.csv", "Output CSV path")
	predictCmd.MarkFlagRequired("config")
	predictCmd.MarkFlagRequired("data")
}

func runPredict(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataPath, _ := cmd.Flags().GetString("data")
	ckptPath, _ := cmd.Flags().GetString("checkpoint")
	outPath, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var snap *checkpoint.Snapshot
	if ckptPath != "" {
		snap, err = checkpoint.Load(ckptPath)
	} else {
		snap, err = checkpoint.LoadLatest(checkpointDir)
	}
	if err != nil {
		return err
	}
	model, _, _, err := checkpoint.Restore(snap, nn.AdamWConfig{LR: cfg.Optimizer.LR})
	if err != nil {
		return err
	}

	graphs, norm, err := loadDataset(dataPath, cfg, false)
	if err != nil {
		return err
	}
	preds, err := trainer.Predict(model, graphs, cfg.BatchSize)
	if err != nil {
		return err
	}

	if err := writePredictions(outPath, preds, norm); err != nil {
		return err
	}
	fmt.Printf("wrote %d profile predictions to %s\n", len(preds), outPath)
	return nil
}

// writePredictions dumps one row per node and output variable, with values
// denormalized to physical units.
func writePredictions(path string, preds [][][]float64, norm []scale.VarInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"profile", "node", "variable", "predicted"}); err != nil {
		return err
	}
	for p, rows := range preds {
		out, err := scale.Denormalize(rows, norm)
		if err != nil {
			return err
		}
		for node := range out {
			for v := range out[node] {
				record := []string{
					strconv.Itoa(p),
					strconv.Itoa(node),
					strconv.Itoa(v),
					strconv.FormatFloat(out[node][v], 'g', -1, 64),
				}
				if err := w.Write(record); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}
