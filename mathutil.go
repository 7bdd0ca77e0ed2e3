package fslm

import "math"

func expf32(x float32) float32 { return float32(math.Exp(float64(x))) }

func logf32(x float32) float32 {
	if x < 1e-7 {
		x = 1e-7
	}
	return float32(math.Log(float64(x)))
}

func nan() float64 { return math.NaN() }

func isNaN(x float64) bool { return math.IsNaN(x) }

// nanDiv returns a/b, or NaN when b is zero rather than +/-Inf.
func nanDiv(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}
