package models

import (
	"fmt"
	"strconv"

	"github.com/biromiro/swgnn/internal/config"
)

// ConfigParams flattens a run configuration into the dotted-key parameter
// map logged at run start.
func ConfigParams(cfg config.RunConfig) map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return map[string]string{
		"max_epochs":                    strconv.Itoa(cfg.MaxEpochs),
		"batch_size":                    strconv.Itoa(cfg.BatchSize),
		"optimizer_params.betas":        fmt.Sprintf("[%s, %s]", f(cfg.Optimizer.Betas[0]), f(cfg.Optimizer.Betas[1])),
		"optimizer_params.lr":           f(cfg.Optimizer.LR),
		"optimizer_params.weight_decay": f(cfg.Optimizer.WeightDecay),
		"optimizer_params.gamma":        f(cfg.Optimizer.Gamma),
		"model.gnn.input_dim":           strconv.Itoa(cfg.Model.GNN.InputDim),
		"model.gnn.edge_dim":            strconv.Itoa(cfg.Model.GNN.EdgeDim),
		"model.gnn.hidden_dim":          strconv.Itoa(cfg.Model.GNN.HiddenDim),
		"model.gnn.output_dim":          strconv.Itoa(cfg.Model.GNN.OutputDim),
		"model.gnn.num_layers":          strconv.Itoa(cfg.Model.GNN.NumLayers),
	}
}
