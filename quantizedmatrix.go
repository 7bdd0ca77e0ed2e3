package fslm

import (
	"encoding/binary"
	"io"
	"math"
)

// QuantizedMatrix is a read-only matrix backed by a ProductQuantizer.
// It is produced once, at quantization time, from a DenseMatrix and
// never mutated afterward: AddVectorToRow is a programmer error here,
// the same way the teacher's finite-state Sorted/Hashed variants are
// read-only once built from a Builder.
type QuantizedMatrix struct {
	m, n int
	pq   *ProductQuantizer
	// codes holds nsubq bytes per row.
	codes []uint8
	// When qnorm is set, normCodes holds one scalar-quantized byte per
	// row norm and normPQ is the 1-dimensional product quantizer that
	// decodes it.
	qnorm     bool
	normCodes []uint8
	normPQ    *ProductQuantizer
}

// NewQuantizedMatrix quantizes dense using a ProductQuantizer trained
// with the given subvector length dsub. When qnorm is set, per-row L2
// norms are scalar-quantized independently and reapplied
// multiplicatively at query time.
func NewQuantizedMatrix(dense *DenseMatrix, dsub int, qnorm bool, rng *Rand) (*QuantizedMatrix, error) {
	m, n := dense.Rows(), dense.Cols()
	qm := &QuantizedMatrix{m: m, n: n, qnorm: qnorm}

	data := dense.data
	trainRows := data
	norms := make([]float32, m)
	if qnorm {
		// Normalize rows before training the main quantizer so it
		// encodes direction only; norms are coded separately.
		trainRows = make([]float32, len(data))
		copy(trainRows, data)
		for i := 0; i < m; i++ {
			row := trainRows[i*n : (i+1)*n]
			var sum float32
			for _, x := range row {
				sum += x * x
			}
			norm := sqrtf32(sum)
			norms[i] = norm
			if norm > 0 {
				for j := range row {
					row[j] /= norm
				}
			}
		}
	}

	qm.pq = NewProductQuantizer(n, dsub)
	if err := qm.pq.Train(trainRows, m, rng); err != nil {
		return nil, err
	}
	qm.codes = make([]uint8, m*qm.pq.NumSubq())
	for i := 0; i < m; i++ {
		qm.pq.Encode(trainRows[i*n:(i+1)*n], qm.codes[i*qm.pq.NumSubq():(i+1)*qm.pq.NumSubq()])
	}

	if qnorm {
		qm.normPQ = NewProductQuantizer(1, 1)
		if err := qm.normPQ.Train(norms, m, rng); err != nil {
			return nil, err
		}
		qm.normCodes = make([]uint8, m)
		for i := 0; i < m; i++ {
			qm.normPQ.Encode(norms[i:i+1], qm.normCodes[i:i+1])
		}
	}
	return qm, nil
}

func sqrtf32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}

func (q *QuantizedMatrix) Rows() int { return q.m }
func (q *QuantizedMatrix) Cols() int { return q.n }

func (q *QuantizedMatrix) rowNorm(i int) float32 {
	if !q.qnorm {
		return 1
	}
	v := NewVector(1)
	q.normPQ.AddCode(v, q.normCodes[i:i+1], 1)
	return v.At(0)
}

func (q *QuantizedMatrix) DotRow(v *Vector, i int) float32 {
	checkRow(i, q.m)
	checkLen(v, q.n)
	nsubq := q.pq.NumSubq()
	dot := q.pq.MulCode(v, q.codes[i*nsubq:(i+1)*nsubq], 1)
	return dot * q.rowNorm(i)
}

func (q *QuantizedMatrix) AddVectorToRow(v *Vector, i int, alpha float32) {
	panic("fslm: AddVectorToRow is unsupported on a QuantizedMatrix (read-only after training)")
}

func (q *QuantizedMatrix) AddRowToVector(dst *Vector, i int) {
	q.AddRowToVectorScaled(dst, i, 1)
}

func (q *QuantizedMatrix) AddRowToVectorScaled(dst *Vector, i int, alpha float32) {
	checkRow(i, q.m)
	checkLen(dst, q.n)
	nsubq := q.pq.NumSubq()
	q.pq.AddCode(dst, q.codes[i*nsubq:(i+1)*nsubq], alpha*q.rowNorm(i))
}

func (q *QuantizedMatrix) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(q.m)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(q.n)); err != nil {
		return err
	}
	nsubq := int64(q.pq.NumSubq())
	if err := binary.Write(w, binary.LittleEndian, nsubq); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, q.qnorm); err != nil {
		return err
	}
	if err := q.pq.Save(w); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, q.codes); err != nil {
		return err
	}
	if q.qnorm {
		if err := q.normPQ.Save(w); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, q.normCodes); err != nil {
			return err
		}
	}
	return nil
}

func (q *QuantizedMatrix) Load(r io.Reader) error {
	var m, n, nsubq int64
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &nsubq); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &q.qnorm); err != nil {
		return err
	}
	q.m, q.n = int(m), int(n)
	q.pq = &ProductQuantizer{}
	if err := q.pq.Load(r); err != nil {
		return err
	}
	q.codes = make([]uint8, int(m)*int(nsubq))
	if err := binary.Read(r, binary.LittleEndian, q.codes); err != nil {
		return err
	}
	if q.qnorm {
		q.normPQ = &ProductQuantizer{}
		if err := q.normPQ.Load(r); err != nil {
			return err
		}
		q.normCodes = make([]uint8, m)
		if err := binary.Read(r, binary.LittleEndian, q.normCodes); err != nil {
			return err
		}
	}
	return nil
}
