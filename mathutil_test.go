package fslm

import (
	"math"
	"testing"
)

func TestNanDiv(t *testing.T) {
	if got := nanDiv(4, 2); got != 2 {
		t.Errorf("nanDiv(4, 2) = %v; want 2", got)
	}
	if got := nanDiv(0, 0); !math.IsNaN(got) {
		t.Errorf("nanDiv(0, 0) = %v; want NaN", got)
	}
	if got := nanDiv(1, 0); !math.IsNaN(got) {
		t.Errorf("nanDiv(1, 0) = %v; want NaN", got)
	}
}

func TestLogf32Saturates(t *testing.T) {
	if got := logf32(0); got > -15 {
		t.Errorf("logf32(0) = %v; want a large negative saturated value", got)
	}
	if got := logf32(1); got != 0 {
		t.Errorf("logf32(1) = %v; want 0", got)
	}
}
