package fslm

import (
	"encoding/binary"
	"io"
)

// DenseMatrix is a row-major m*n table of float32 reals.
type DenseMatrix struct {
	m, n int
	data []float32
}

// NewDenseMatrix allocates a zeroed m*n matrix.
func NewDenseMatrix(m, n int) *DenseMatrix {
	return &DenseMatrix{m: m, n: n, data: make([]float32, m*n)}
}

func (a *DenseMatrix) Rows() int { return a.m }
func (a *DenseMatrix) Cols() int { return a.n }

func (a *DenseMatrix) row(i int) []float32 {
	checkRow(i, a.m)
	return a.data[i*a.n : (i+1)*a.n]
}

// Uniform fills the matrix with values drawn from U(-bound, bound)
// using rng, the way fastText initializes its input/output matrices.
func (a *DenseMatrix) Uniform(rng *Rand, bound float32) {
	for i := range a.data {
		a.data[i] = rng.Uniform(-bound, bound)
	}
}

func (a *DenseMatrix) DotRow(v *Vector, i int) float32 {
	checkLen(v, a.n)
	row := a.row(i)
	var sum float32
	src := v.Slice()
	for j, x := range row {
		sum += x * src[j]
	}
	return sum
}

func (a *DenseMatrix) AddVectorToRow(v *Vector, i int, alpha float32) {
	checkLen(v, a.n)
	row := a.row(i)
	src := v.Slice()
	for j := range row {
		row[j] += alpha * src[j]
	}
}

func (a *DenseMatrix) AddRowToVector(dst *Vector, i int) {
	a.AddRowToVectorScaled(dst, i, 1)
}

func (a *DenseMatrix) AddRowToVectorScaled(dst *Vector, i int, alpha float32) {
	checkLen(dst, a.n)
	row := a.row(i)
	d := dst.Slice()
	for j, x := range row {
		d[j] += alpha * x
	}
}

// Save writes m, n and the m*n reals in row-major order, little-endian.
func (a *DenseMatrix) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(a.m)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(a.n)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, a.data)
}

// Load is the inverse of Save.
func (a *DenseMatrix) Load(r io.Reader) error {
	var m, n int64
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	a.m, a.n = int(m), int(n)
	a.data = make([]float32, a.m*a.n)
	return binary.Read(r, binary.LittleEndian, a.data)
}
