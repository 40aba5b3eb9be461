// Package parser reads profile dataset files. A dataset document carries a
// list of solar-wind profiles (per-node inputs and optional per-node
// targets) plus the normalization info recorded by the upstream pipeline.
package parser

import (
	"fmt"

	"github.com/biromiro/swgnn/internal/scale"
)

// Profile is one sample: a radial sequence of points with inputDim
// features each, and optionally outputDim targets each.
type Profile struct {
	Inputs  [][]float64 `json:"inputs" yaml:"inputs"`
	Targets [][]float64 `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// ProfilesFile is the on-disk dataset document.
type ProfilesFile struct {
	Profiles      []Profile       `json:"profiles" yaml:"profiles"`
	Normalization []scale.VarInfo `json:"normalization,omitempty" yaml:"normalization,omitempty"`
}

// CheckDims verifies every profile against the configured feature widths.
// The run configuration cannot see the dataset, so the shape check lives
// here at the data layer.
func (f *ProfilesFile) CheckDims(inputDim, outputDim int) error {
	if len(f.Profiles) == 0 {
		return fmt.Errorf("parser: dataset has no profiles")
	}
	for i, p := range f.Profiles {
		for _, row := range p.Inputs {
			if len(row) != inputDim {
				return fmt.Errorf("parser: profile %d has %d input features per node, config expects %d", i, len(row), inputDim)
			}
		}
		for _, row := range p.Targets {
			if len(row) != outputDim {
				return fmt.Errorf("parser: profile %d has %d target values per node, config expects %d", i, len(row), outputDim)
			}
		}
	}
	return nil
}
