// Package graph turns solar-wind profiles into graph samples and batches
// them for training. A profile is a radial sequence of points; its graph is
// a bidirectional chain whose edge attributes carry direction and
// separation, and batches are disjoint unions with offset edge indices.
package graph

import (
	"fmt"
)

// Graph is a single sample or a batch of samples. Node rows are stacked
// across graphs; Batch maps each node row to its graph index.
type Graph struct {
	X         [][]float64 // node features, NumNodes x inputDim
	Y         [][]float64 // node targets, NumNodes x outputDim; nil when unlabeled
	EdgeIndex [][2]int    // directed edges as (src, dst) pairs
	EdgeAttr  [][]float64 // per-edge features, len(EdgeIndex) x edgeDim
	Batch     []int       // node index -> graph index
	NumGraphs int
}

func (g *Graph) NumNodes() int { return len(g.X) }
func (g *Graph) NumEdges() int { return len(g.EdgeIndex) }

// InputDim returns the per-node feature width, or 0 for an empty graph.
func (g *Graph) InputDim() int {
	if len(g.X) == 0 {
		return 0
	}
	return len(g.X[0])
}

// EdgeDim returns the per-edge feature width, or 0 when there are no edges.
func (g *Graph) EdgeDim() int {
	if len(g.EdgeAttr) == 0 {
		return 0
	}
	return len(g.EdgeAttr[0])
}

// OutputDim returns the per-node target width, or 0 for unlabeled graphs.
func (g *Graph) OutputDim() int {
	if len(g.Y) == 0 {
		return 0
	}
	return len(g.Y[0])
}

// FromProfile builds a chain graph from one profile. inputs is
// numNodes x inputDim; targets is numNodes x outputDim or nil for
// prediction-only samples. Consecutive points are linked in both
// directions; each edge carries [direction, separation] where direction is
// +1 outward and -1 inward, and separation is the normalized distance
// between the endpoints.
func FromProfile(inputs, targets [][]float64) (*Graph, error) {
	n := len(inputs)
	if n < 2 {
		return nil, fmt.Errorf("graph: profile needs at least 2 points, got %d", n)
	}
	width := len(inputs[0])
	if width == 0 {
		return nil, fmt.Errorf("graph: profile has empty feature rows")
	}
	for i, row := range inputs {
		if len(row) != width {
			return nil, fmt.Errorf("graph: ragged input row %d: %d features, expected %d", i, len(row), width)
		}
	}
	if targets != nil {
		if len(targets) != n {
			return nil, fmt.Errorf("graph: %d target rows for %d nodes", len(targets), n)
		}
		tw := len(targets[0])
		for i, row := range targets {
			if len(row) != tw {
				return nil, fmt.Errorf("graph: ragged target row %d: %d values, expected %d", i, len(row), tw)
			}
		}
	}

	sep := 1.0 / float64(n-1)
	edges := make([][2]int, 0, 2*(n-1))
	attrs := make([][]float64, 0, 2*(n-1))
	for i := 0; i < n-1; i++ {
		edges = append(edges, [2]int{i, i + 1})
		attrs = append(attrs, []float64{1, sep})
		edges = append(edges, [2]int{i + 1, i})
		attrs = append(attrs, []float64{-1, sep})
	}

	batch := make([]int, n)
	return &Graph{
		X:         inputs,
		Y:         targets,
		EdgeIndex: edges,
		EdgeAttr:  attrs,
		Batch:     batch,
		NumGraphs: 1,
	}, nil
}

// FromProfiles builds one graph per profile pair. targets may be nil for
// unlabeled datasets; otherwise it must be parallel to inputs.
func FromProfiles(inputs, targets [][][]float64) ([]*Graph, error) {
	if targets != nil && len(targets) != len(inputs) {
		return nil, fmt.Errorf("graph: %d target profiles for %d input profiles", len(targets), len(inputs))
	}
	graphs := make([]*Graph, 0, len(inputs))
	for i := range inputs {
		var tgt [][]float64
		if targets != nil {
			tgt = targets[i]
		}
		g, err := FromProfile(inputs[i], tgt)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// Merge forms the disjoint union of the given graphs: node rows are
// concatenated, edge indices offset by the running node count, and Batch
// records the owning graph per node. Feature widths must agree across
// graphs.
func Merge(graphs []*Graph) (*Graph, error) {
	if len(graphs) == 0 {
		return nil, fmt.Errorf("graph: cannot merge zero graphs")
	}

	out := &Graph{NumGraphs: 0}
	labeled := graphs[0].Y != nil
	offset := 0
	for gi, g := range graphs {
		if g.InputDim() != graphs[0].InputDim() {
			return nil, fmt.Errorf("graph: input width mismatch at graph %d: %d vs %d", gi, g.InputDim(), graphs[0].InputDim())
		}
		if (g.Y != nil) != labeled {
			return nil, fmt.Errorf("graph: cannot merge labeled and unlabeled graphs")
		}
		out.X = append(out.X, g.X...)
		if labeled {
			out.Y = append(out.Y, g.Y...)
		}
		for i, e := range g.EdgeIndex {
			out.EdgeIndex = append(out.EdgeIndex, [2]int{e[0] + offset, e[1] + offset})
			out.EdgeAttr = append(out.EdgeAttr, g.EdgeAttr[i])
		}
		for range g.X {
			out.Batch = append(out.Batch, out.NumGraphs)
		}
		offset += g.NumNodes()
		out.NumGraphs++
	}
	return out, nil
}

// Split regroups stacked node rows by graph. rows is NumNodes x width with
// batchIndex assigning each row to a graph; the result is one matrix per
// graph, in graph order. Rows need not be contiguous per graph.
func Split(rows [][]float64, batchIndex []int, numGraphs int) ([][][]float64, error) {
	if len(rows) != len(batchIndex) {
		return nil, fmt.Errorf("graph: %d rows but %d batch indices", len(rows), len(batchIndex))
	}
	out := make([][][]float64, numGraphs)
	for i, row := range rows {
		gi := batchIndex[i]
		if gi < 0 || gi >= numGraphs {
			return nil, fmt.Errorf("graph: batch index %d out of range [0, %d)", gi, numGraphs)
		}
		out[gi] = append(out[gi], row)
	}
	return out, nil
}
