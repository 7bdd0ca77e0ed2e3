package fslm

import (
	"bytes"
	"testing"
)

func buildDenseForQuantization(rng *Rand, rows, cols int) *DenseMatrix {
	m := NewDenseMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		center := float32(i%KSUB) * 5
		v := NewVector(cols)
		for j := 0; j < cols; j++ {
			v.Set(j, center+rng.Uniform(-0.01, 0.01))
		}
		m.AddVectorToRow(v, i, 1)
	}
	return m
}

func TestQuantizedMatrixDotRowApproximatesDense(t *testing.T) {
	rng := NewRand(1)
	dense := buildDenseForQuantization(rng, KSUB*2, 4)
	qm, err := NewQuantizedMatrix(dense, 2, false, rng)
	if err != nil {
		t.Fatalf("NewQuantizedMatrix: %v", err)
	}

	probe := vecOf(1, 1, 1, 1)
	for _, row := range []int{0, 1, KSUB} {
		want := dense.DotRow(probe, row)
		got := qm.DotRow(probe, row)
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			t.Errorf("row %d: DotRow quantized = %v; dense = %v (too far)", row, got, want)
		}
	}
}

func TestQuantizedMatrixAddVectorToRowPanics(t *testing.T) {
	rng := NewRand(1)
	dense := buildDenseForQuantization(rng, KSUB, 2)
	qm, err := NewQuantizedMatrix(dense, 2, false, rng)
	if err != nil {
		t.Fatalf("NewQuantizedMatrix: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic mutating a QuantizedMatrix; got nil")
		}
	}()
	qm.AddVectorToRow(NewVector(2), 0, 1)
}

func TestQuantizedMatrixWithNormSaveLoadRoundTrip(t *testing.T) {
	rng := NewRand(3)
	dense := buildDenseForQuantization(rng, KSUB, 4)
	qm, err := NewQuantizedMatrix(dense, 2, true, rng)
	if err != nil {
		t.Fatalf("NewQuantizedMatrix: %v", err)
	}

	var buf bytes.Buffer
	if err := qm.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded := &QuantizedMatrix{}
	if err := loaded.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Rows() != qm.Rows() || loaded.Cols() != qm.Cols() {
		t.Fatalf("dims mismatch after round trip: got %dx%d, want %dx%d",
			loaded.Rows(), loaded.Cols(), qm.Rows(), qm.Cols())
	}

	probe := vecOf(1, 1, 1, 1)
	for _, row := range []int{0, 1} {
		want := qm.DotRow(probe, row)
		got := loaded.DotRow(probe, row)
		if got != want {
			t.Errorf("row %d: DotRow after round trip = %v; want %v", row, got, want)
		}
	}
}
