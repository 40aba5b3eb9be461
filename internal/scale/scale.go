// Package scale implements the normalization used on solar-wind variables:
// a median/IQR robust scaler plus the per-variable denormalization methods
// the dataset pipeline records alongside the profiles.
package scale

import (
	"fmt"
	"math"
	"sort"
)

// Method names how a variable was normalized upstream.
type Method string

const (
	MethodStandardization    Method = "standardization"
	MethodLogStandardization Method = "log_standardization"
	MethodLogRobustScaling   Method = "log_robust_scaling"
)

// VarInfo describes the normalization of one variable. Mean/Std apply to
// the standardization methods, Median/IQR to robust scaling.
type VarInfo struct {
	Method Method  `json:"method" yaml:"method"`
	Mean   float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std    float64 `json:"std,omitempty" yaml:"std,omitempty"`
	Median float64 `json:"median,omitempty" yaml:"median,omitempty"`
	IQR    float64 `json:"iqr,omitempty" yaml:"iqr,omitempty"`
}

// RobustScaler centers on the median and scales by the interquartile
// range, which keeps outlier samples from dominating the scale.
type RobustScaler struct {
	Median float64
	IQR    float64
	fitted bool
}

// Fit computes the median and IQR of xs.
func (s *RobustScaler) Fit(xs []float64) error {
	if len(xs) == 0 {
		return fmt.Errorf("scale: cannot fit on empty data")
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	s.Median = quantile(sorted, 0.5)
	s.IQR = quantile(sorted, 0.75) - quantile(sorted, 0.25)
	if s.IQR == 0 {
		return fmt.Errorf("scale: zero interquartile range, data is degenerate")
	}
	s.fitted = true
	return nil
}

func (s *RobustScaler) Transform(x float64) float64 {
	return (x - s.Median) / s.IQR
}

func (s *RobustScaler) InverseTransform(x float64) float64 {
	return x*s.IQR + s.Median
}

// Fitted reports whether Fit has been called successfully.
func (s *RobustScaler) Fitted() bool { return s.fitted }

// quantile interpolates linearly between the two nearest order statistics
// of an already sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Denormalize maps normalized node rows back to physical units, one VarInfo
// per column. Columns without an entry (or with an empty method) pass
// through unchanged.
func Denormalize(rows [][]float64, info []VarInfo) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		res := make([]float64, len(row))
		copy(res, row)
		for v := range row {
			if v >= len(info) {
				break
			}
			var err error
			res[v], err = denormalizeValue(row[v], info[v])
			if err != nil {
				return nil, fmt.Errorf("variable %d: %w", v, err)
			}
		}
		out[i] = res
	}
	return out, nil
}

func denormalizeValue(x float64, info VarInfo) (float64, error) {
	switch info.Method {
	case "":
		return x, nil
	case MethodStandardization:
		return x*info.Std + info.Mean, nil
	case MethodLogStandardization:
		// expm1 undoes the log1p applied upstream.
		return math.Expm1(x*info.Std + info.Mean), nil
	case MethodLogRobustScaling:
		return math.Expm1(x*info.IQR + info.Median), nil
	default:
		return 0, fmt.Errorf("scale: unknown normalization method %q", info.Method)
	}
}
