package fslm

import "math"

const (
	sigmoidTableSize = 512
	maxSigmoid       = 8.0
	logTableSize     = 512
)

// lossTables holds the shared sigmoid/log lookup tables. Precomputing
// them is a throughput choice, not a contract: any implementation that
// calls math.Exp/math.Log directly instead is equally correct.
type lossTables struct {
	sigmoid []float32
	log     []float32
}

func newLossTables() *lossTables {
	t := &lossTables{
		sigmoid: make([]float32, sigmoidTableSize+1),
		log:     make([]float32, logTableSize+1),
	}
	for i := range t.sigmoid {
		x := (float64(i)/sigmoidTableSize*2 - 1) * maxSigmoid
		t.sigmoid[i] = float32(1 / (1 + math.Exp(-x)))
	}
	for i := range t.log {
		x := (float64(i) + 1e-5) / logTableSize
		t.log[i] = float32(math.Log(x))
	}
	return t
}

func (t *lossTables) Sigmoid(x float32) float32 {
	if x < -maxSigmoid {
		return 0
	}
	if x > maxSigmoid {
		return 1
	}
	i := int((x + maxSigmoid) / (2 * maxSigmoid) * sigmoidTableSize)
	return t.sigmoid[i]
}

// Log returns log(x) for x in (0, 1]; log(x >= 1) is 0, matching the
// saturating behavior of the table-backed reference implementation.
func (t *lossTables) Log(x float32) float32 {
	if x >= 1 {
		return 0
	}
	i := int(x * logTableSize)
	return t.log[i]
}

// Prediction is one scored label, as returned by Loss.Predict.
type Prediction struct {
	Score float32
	Label int32
}

// Loss is the shared contract for softmax, negative-sampling,
// hierarchical-softmax and one-vs-all output layers.
type Loss struct {
	kind LossKind
	impl lossImpl
}

// lossImpl is the actual per-variant behavior; Loss wraps it so
// callers hold one concrete type regardless of which loss was chosen.
type lossImpl interface {
	forward(targets []int32, targetIndex int, state *State, lr float32, backprop bool) float32
	computeOutput(state *State)
	predict(k int, threshold float32, heap *Heap, state *State)
}

func (l *Loss) Forward(targets []int32, targetIndex int, state *State, lr float32, backprop bool) float32 {
	return l.impl.forward(targets, targetIndex, state, lr, backprop)
}

func (l *Loss) ComputeOutput(state *State) { l.impl.computeOutput(state) }

func (l *Loss) Predict(k int, threshold float32, heap *Heap, state *State) {
	l.impl.predict(k, threshold, heap, state)
}

func (l *Loss) Kind() LossKind { return l.kind }
