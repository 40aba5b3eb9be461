package trainer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/biromiro/swgnn/internal/graph"
	"github.com/biromiro/swgnn/internal/nn"
	"github.com/biromiro/swgnn/internal/scale"
)

// writeResults dumps one CSV row per node and output variable, with
// normalization undone so values are in physical units.
func (t *Trainer) writeResults(epoch int, actual, predicted [][][]float64) error {
	if err := os.MkdirAll(t.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(t.opts.OutputDir, fmt.Sprintf("results_%d.csv", epoch))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"profile", "node", "variable", "actual", "predicted"}); err != nil {
		return err
	}
	for p := range actual {
		act, err := scale.Denormalize(actual[p], t.opts.Normalization)
		if err != nil {
			return err
		}
		pred, err := scale.Denormalize(predicted[p], t.opts.Normalization)
		if err != nil {
			return err
		}
		for node := range act {
			for v := range act[node] {
				record := []string{
					strconv.Itoa(p),
					strconv.Itoa(node),
					strconv.Itoa(v),
					strconv.FormatFloat(act[node][v], 'g', -1, 64),
					strconv.FormatFloat(pred[node][v], 'g', -1, 64),
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

// Predict runs the model over graphs in batches and returns per-graph
// prediction rows, in input order.
func Predict(model *nn.GNN, graphs []*graph.Graph, batchSize int) ([][][]float64, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("trainer: batch size must be >= 1, got %d", batchSize)
	}
	var preds [][][]float64
	for start := 0; start < len(graphs); start += batchSize {
		end := start + batchSize
		if end > len(graphs) {
			end = len(graphs)
		}
		batch, err := graph.Merge(graphs[start:end])
		if err != nil {
			return nil, err
		}
		out, err := model.Forward(batch)
		if err != nil {
			return nil, err
		}
		split, err := graph.Split(out, batch.Batch, batch.NumGraphs)
		if err != nil {
			return nil, err
		}
		preds = append(preds, split...)
	}
	return preds, nil
}
