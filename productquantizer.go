package fslm

import (
	"encoding/binary"
	"io"
	"math"
)

// KSUB is the number of centroids per subquantizer.
const KSUB = 256

// maxPointsPerCluster bounds the subsample size per subquantizer
// training pass: maxPointsPerCluster * KSUB.
const maxPointsPerCluster = 256

const pqIterations = 25

const pqEps = 1e-7

// ProductQuantizer implements a two-level k-means codebook over
// dim-length rows, split into nsubq subvectors of length dsub (the
// last subvector may be shorter: lastdsub).
type ProductQuantizer struct {
	dim      int
	dsub     int
	lastdsub int
	nsubq    int
	// centroids is laid out flat: subquantizer m's codebook occupies
	// KSUB*dsub floats starting at m*KSUB*dsub, except the final
	// subquantizer, whose KSUB centroids are each lastdsub wide instead
	// (see blockOffset/centroid).
	centroids []float32
}

// NewProductQuantizer allocates an untrained quantizer for vectors of
// length dim split into subvectors of length dsub.
func NewProductQuantizer(dim, dsub int) *ProductQuantizer {
	if dsub <= 0 {
		dsub = 2
	}
	nsubq := (dim + dsub - 1) / dsub
	lastdsub := dim - (nsubq-1)*dsub
	if lastdsub <= 0 {
		lastdsub = dsub
	}
	return &ProductQuantizer{
		dim:       dim,
		dsub:      dsub,
		lastdsub:  lastdsub,
		nsubq:     nsubq,
		centroids: make([]float32, dim*KSUB),
	}
}

func (pq *ProductQuantizer) NumSubq() int { return pq.nsubq }

// subDim returns the length of subvector m.
func (pq *ProductQuantizer) subDim(m int) int {
	if m == pq.nsubq-1 {
		return pq.lastdsub
	}
	return pq.dsub
}

// subOffset returns the offset of subvector m within a full row.
func (pq *ProductQuantizer) subOffset(m int) int {
	return m * pq.dsub
}

// blockOffset returns the start of subquantizer m's codebook within
// the flat centroids slice. Every subquantizer but the last stores
// KSUB centroids of width dsub; the last stores KSUB centroids of
// width lastdsub, so its block starts at the same m*KSUB*dsub offset
// but is indexed with lastdsub stride by centroid below.
func (pq *ProductQuantizer) blockOffset(m int) int {
	return m * KSUB * pq.dsub
}

// centroid returns the slice for subquantizer m, code i.
func (pq *ProductQuantizer) centroid(m, i int) []float32 {
	d := pq.subDim(m)
	off := pq.blockOffset(m) + i*d
	return pq.centroids[off : off+d]
}

// Train runs Lloyd's k-means independently for each subquantizer over
// the rows in data (row-major, n*dim). Requires n >= KSUB.
func (pq *ProductQuantizer) Train(data []float32, n int, rng *Rand) error {
	if n < KSUB {
		return &Error{Kind: ErrConfiguration, Context: "product quantizer training requires at least KSUB rows"}
	}
	perm := rng.Permutation(n)
	numPoints := n
	if numPoints > maxPointsPerCluster*KSUB {
		numPoints = maxPointsPerCluster * KSUB
	}
	for m := 0; m < pq.nsubq; m++ {
		d := pq.subDim(m)
		off := pq.subOffset(m)
		points := make([][]float32, numPoints)
		for i := 0; i < numPoints; i++ {
			row := perm[i]
			points[i] = data[row*pq.dim+off : row*pq.dim+off+d]
		}
		centroids := pq.kmeans(points, d, rng)
		dst := pq.centroids[pq.blockOffset(m):]
		for i := 0; i < KSUB; i++ {
			copy(dst[i*d:i*d+d], centroids[i])
		}
	}
	return nil
}

// kmeans runs pqIterations of Lloyd's algorithm with KSUB centroids
// over points (each of length d), reseeding empty clusters as it goes.
func (pq *ProductQuantizer) kmeans(points [][]float32, d int, rng *Rand) [][]float32 {
	centroids := make([][]float32, KSUB)
	for i := range centroids {
		centroids[i] = append([]float32(nil), points[i]...)
	}
	assign := make([]int, len(points))
	nelts := make([]int, KSUB)
	for iter := 0; iter < pqIterations; iter++ {
		for i := range nelts {
			nelts[i] = 0
		}
		for i, p := range points {
			best, bestDist := 0, float32(math.MaxFloat32)
			for c, centroid := range centroids {
				dist := sqL2(p, centroid)
				if dist < bestDist {
					bestDist, best = dist, c
				}
			}
			assign[i] = best
			nelts[best]++
		}
		newCentroids := make([][]float32, KSUB)
		for i := range newCentroids {
			newCentroids[i] = make([]float32, d)
		}
		for i, p := range points {
			c := newCentroids[assign[i]]
			for j, x := range p {
				c[j] += x
			}
		}
		for c := range newCentroids {
			if nelts[c] > 0 {
				inv := 1 / float32(nelts[c])
				for j := range newCentroids[c] {
					newCentroids[c][j] *= inv
				}
			}
		}
		pq.reseedEmpty(newCentroids, nelts, rng)
		centroids = newCentroids
	}
	return centroids
}

// reseedEmpty implements the empty-cluster reseeding rule: for each
// empty centroid k, pick a non-empty source m with probability
// proportional to nelts[m]-1, clone its centroid, perturb both by
// +-pqEps in alternating sign per coordinate, and split nelts[m]
// between them.
func (pq *ProductQuantizer) reseedEmpty(centroids [][]float32, nelts []int, rng *Rand) {
	total := 0
	for _, n := range nelts {
		if n > 1 {
			total += n - 1
		}
	}
	for k, n := range nelts {
		if n != 0 || total <= 0 {
			continue
		}
		target := rng.Intn(total)
		cum, src := 0, -1
		for m, nm := range nelts {
			if nm > 1 {
				cum += nm - 1
				if target < cum {
					src = m
					break
				}
			}
		}
		if src < 0 {
			continue
		}
		for j := range centroids[k] {
			sign := float32(1)
			if j%2 == 1 {
				sign = -1
			}
			centroids[k][j] = centroids[src][j] + sign*pqEps
			centroids[src][j] = centroids[src][j] - sign*pqEps
		}
		nelts[k] = nelts[src] / 2
		nelts[src] -= nelts[k]
	}
}

func sqL2(a, b []float32) float32 {
	var sum float32
	for i, x := range a {
		d := x - b[i]
		sum += d * d
	}
	return sum
}

// Encode assigns nearest-centroid codes for one row into codes
// (length nsubq). Ties break toward the lowest index.
func (pq *ProductQuantizer) Encode(row []float32, codes []uint8) {
	for m := 0; m < pq.nsubq; m++ {
		d := pq.subDim(m)
		off := pq.subOffset(m)
		sub := row[off : off+d]
		best, bestDist := 0, float32(math.MaxFloat32)
		for i := 0; i < KSUB; i++ {
			dist := sqL2(sub, pq.centroid(m, i))
			if dist < bestDist {
				bestDist, best = dist, i
			}
		}
		codes[m] = uint8(best)
	}
}

// MulCode returns alpha * sum_m <v[subvector m], centroid(m, codes[m])>.
func (pq *ProductQuantizer) MulCode(v *Vector, codes []uint8, alpha float32) float32 {
	src := v.Slice()
	var sum float32
	for m := 0; m < pq.nsubq; m++ {
		d := pq.subDim(m)
		off := pq.subOffset(m)
		c := pq.centroid(m, int(codes[m]))
		sub := src[off : off+d]
		var dot float32
		for j, x := range c {
			dot += x * sub[j]
		}
		sum += dot
	}
	return alpha * sum
}

// AddCode performs x[m*dsub+j] += alpha*centroid(m, codes[m])[j] in place.
func (pq *ProductQuantizer) AddCode(x *Vector, codes []uint8, alpha float32) {
	dst := x.Slice()
	for m := 0; m < pq.nsubq; m++ {
		off := pq.subOffset(m)
		c := pq.centroid(m, int(codes[m]))
		for j, v := range c {
			dst[off+j] += alpha * v
		}
	}
}

func (pq *ProductQuantizer) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(pq.dim)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(pq.dsub)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(pq.lastdsub)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(pq.nsubq)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, pq.centroids)
}

func (pq *ProductQuantizer) Load(r io.Reader) error {
	var dim, dsub, lastdsub, nsubq int64
	for _, p := range []*int64{&dim, &dsub, &lastdsub, &nsubq} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return err
		}
	}
	pq.dim, pq.dsub, pq.lastdsub, pq.nsubq = int(dim), int(dsub), int(lastdsub), int(nsubq)
	pq.centroids = make([]float32, pq.dim*KSUB)
	return binary.Read(r, binary.LittleEndian, pq.centroids)
}
