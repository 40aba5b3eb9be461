package nn

import "fmt"

// MSE returns the mean squared error over all elements together with its
// gradient with respect to pred.
func MSE(pred, target [][]float64) (float64, [][]float64, error) {
	if len(pred) != len(target) {
		return 0, nil, fmt.Errorf("nn: prediction has %d rows, target has %d", len(pred), len(target))
	}

	total := 0
	for i := range pred {
		if len(pred[i]) != len(target[i]) {
			return 0, nil, fmt.Errorf("nn: row %d width mismatch: %d vs %d", i, len(pred[i]), len(target[i]))
		}
		total += len(pred[i])
	}
	if total == 0 {
		return 0, nil, fmt.Errorf("nn: empty prediction")
	}

	sum := 0.0
	grad := make([][]float64, len(pred))
	scale := 2.0 / float64(total)
	for i := range pred {
		row := make([]float64, len(pred[i]))
		for j := range pred[i] {
			diff := pred[i][j] - target[i][j]
			sum += diff * diff
			row[j] = scale * diff
		}
		grad[i] = row
	}
	return sum / float64(total), grad, nil
}
