package classifier

import "math"

// Softmax converts raw scores to probabilities in place. The largest score
// keeps the largest probability, so argmax is unchanged.
func Softmax(scores []float32) {
	if len(scores) == 0 {
		return
	}
	peak := float32(math.Inf(-1))
	for _, s := range scores {
		if s > peak {
			peak = s
		}
	}

	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - peak))
		scores[i] = float32(e)
		sum += e
	}
	if sum == 0 || math.IsNaN(sum) {
		return
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
}
