package fslm

import (
	"bytes"
	"testing"
)

func TestDenseMatrixDotRow(t *testing.T) {
	m := NewDenseMatrix(2, 3)
	m.AddVectorToRow(vecOf(1, 2, 3), 0, 1)
	m.AddVectorToRow(vecOf(4, 5, 6), 1, 1)

	if got := m.DotRow(vecOf(1, 1, 1), 0); got != 6 {
		t.Errorf("DotRow(row0) = %v; want 6", got)
	}
	if got := m.DotRow(vecOf(1, 0, 0), 1); got != 4 {
		t.Errorf("DotRow(row1) = %v; want 4", got)
	}
}

func TestDenseMatrixAddRowToVectorScaled(t *testing.T) {
	m := NewDenseMatrix(1, 2)
	m.AddVectorToRow(vecOf(2, 3), 0, 1)
	dst := NewVector(2)
	m.AddRowToVectorScaled(dst, 0, 2)
	if dst.At(0) != 4 || dst.At(1) != 6 {
		t.Errorf("expected [4 6]; got [%v %v]", dst.At(0), dst.At(1))
	}
}

func TestDenseMatrixRowOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on out-of-range row; got nil")
		}
	}()
	NewDenseMatrix(1, 2).DotRow(vecOf(1, 1), 5)
}

func TestDenseMatrixSaveLoadRoundTrip(t *testing.T) {
	m := NewDenseMatrix(2, 3)
	m.AddVectorToRow(vecOf(1, 2, 3), 0, 1)
	m.AddVectorToRow(vecOf(-1, -2, -3), 1, 1)

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := &DenseMatrix{}
	if err := loaded.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Rows() != 2 || loaded.Cols() != 3 {
		t.Fatalf("expected 2x3; got %dx%d", loaded.Rows(), loaded.Cols())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			want := m.row(i)[j]
			got := loaded.row(i)[j]
			if got != want {
				t.Errorf("[%d][%d] = %v; want %v", i, j, got, want)
			}
		}
	}
}

func vecOf(xs ...float32) *Vector {
	v := NewVector(len(xs))
	for i, x := range xs {
		v.Set(i, x)
	}
	return v
}
