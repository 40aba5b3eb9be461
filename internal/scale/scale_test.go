package scale

import (
	"math"
	"testing"
)

func TestRobustScalerFit(t *testing.T) {
	var s RobustScaler
	if err := s.Fit([]float64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if s.Median != 3 {
		t.Fatalf("median: %v", s.Median)
	}
	if s.IQR != 2 {
		t.Fatalf("iqr: %v, expected q3-q1 = 4-2", s.IQR)
	}
	if !s.Fitted() {
		t.Fatalf("scaler should report fitted")
	}
}

func TestRobustScalerRoundTrip(t *testing.T) {
	var s RobustScaler
	data := []float64{10, 3, 7, 100, 5, 8, 2}
	if err := s.Fit(data); err != nil {
		t.Fatalf("fit: %v", err)
	}
	for _, x := range data {
		back := s.InverseTransform(s.Transform(x))
		if math.Abs(back-x) > 1e-12 {
			t.Fatalf("round trip of %v gave %v", x, back)
		}
	}
}

func TestRobustScalerDegenerate(t *testing.T) {
	var s RobustScaler
	if err := s.Fit(nil); err == nil {
		t.Fatalf("empty data should fail")
	}
	if err := s.Fit([]float64{5, 5, 5, 5}); err == nil {
		t.Fatalf("zero IQR should fail")
	}
}

func TestDenormalize(t *testing.T) {
	info := []VarInfo{
		{Method: MethodStandardization, Mean: 10, Std: 2},
		{Method: MethodLogStandardization, Mean: 1, Std: 0.5},
		{Method: MethodLogRobustScaling, Median: 2, IQR: 0.25},
	}
	rows := [][]float64{{1.5, 0.8, -0.4}}

	out, err := Denormalize(rows, info)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}

	if out[0][0] != 13 {
		t.Fatalf("standardization: %v, expected 13", out[0][0])
	}
	want := math.Expm1(0.8*0.5 + 1)
	if math.Abs(out[0][1]-want) > 1e-12 {
		t.Fatalf("log standardization: %v, expected %v", out[0][1], want)
	}
	want = math.Expm1(-0.4*0.25 + 2)
	if math.Abs(out[0][2]-want) > 1e-12 {
		t.Fatalf("log robust scaling: %v, expected %v", out[0][2], want)
	}
}

func TestDenormalizePassThrough(t *testing.T) {
	// Columns beyond the info slice, or with no method, stay untouched.
	rows := [][]float64{{1, 2, 3}}
	out, err := Denormalize(rows, []VarInfo{{}})
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	for j := range rows[0] {
		if out[0][j] != rows[0][j] {
			t.Fatalf("column %d changed: %v", j, out[0][j])
		}
	}
}

func TestDenormalizeUnknownMethod(t *testing.T) {
	_, err := Denormalize([][]float64{{1}}, []VarInfo{{Method: "minmax"}})
	if err == nil {
		t.Fatalf("unknown method should fail")
	}
}
