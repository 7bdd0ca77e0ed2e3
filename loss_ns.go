package fslm

import (
	"math"
	"sort"
)

// negativeSampler draws label ids from a unigram distribution
// proportional to count^0.5, via a cumulative-weight binary search
// rather than a precomputed flat table (the source's NEGATIVE_TABLE_SIZE
// table is a throughput choice; this is the equivalent sampling
// distribution without fixing a table size up front).
type negativeSampler struct {
	cumulative []float64
	total      float64
}

func newNegativeSampler(labelCounts []uint64) *negativeSampler {
	cum := make([]float64, len(labelCounts))
	var sum float64
	for i, c := range labelCounts {
		sum += math.Sqrt(float64(c))
		cum[i] = sum
	}
	return &negativeSampler{cumulative: cum, total: sum}
}

func (s *negativeSampler) sample(rng *Rand) int32 {
	if s.total <= 0 {
		return 0
	}
	x := rng.Float64() * s.total
	i := sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] >= x })
	if i >= len(s.cumulative) {
		i = len(s.cumulative) - 1
	}
	return int32(i)
}

// nsLoss approximates softmax as 1+neg independent binary decisions:
// one positive, neg negatives drawn from the unigram distribution.
type nsLoss struct {
	wo      Matrix
	tables  *lossTables
	neg     int
	sampler *negativeSampler
}

// NewNSLoss builds a negative-sampling Loss over output matrix wo,
// drawing neg negatives per example from labelCounts^0.5.
func NewNSLoss(wo Matrix, labelCounts []uint64, neg int) *Loss {
	return &Loss{kind: LossNS, impl: &nsLoss{
		wo:      wo,
		tables:  newLossTables(),
		neg:     neg,
		sampler: newNegativeSampler(labelCounts),
	}}
}

func (l *nsLoss) binaryLogistic(target int32, positive bool, state *State, lr float32, backprop bool) float32 {
	score := l.tables.Sigmoid(l.wo.DotRow(state.hidden, int(target)))
	if backprop {
		label := float32(0)
		if positive {
			label = 1
		}
		alpha := lr * (label - score)
		l.wo.AddRowToVectorScaled(state.grad, int(target), alpha)
		l.wo.AddVectorToRow(state.hidden, int(target), alpha)
	}
	if positive {
		return -l.tables.Log(score)
	}
	return -l.tables.Log(1 - score)
}

func (l *nsLoss) getNegative(target int32, rng *Rand) int32 {
	for {
		neg := l.sampler.sample(rng)
		if neg != target {
			return neg
		}
	}
}

func (l *nsLoss) forward(targets []int32, targetIndex int, state *State, lr float32, backprop bool) float32 {
	target := targets[targetIndex]
	loss := l.binaryLogistic(target, true, state, lr, backprop)
	for i := 0; i < l.neg; i++ {
		neg := l.getNegative(target, state.rng)
		loss += l.binaryLogistic(neg, false, state, lr, backprop)
	}
	return loss
}

func (l *nsLoss) computeOutput(state *State) {
	osz := l.wo.Rows()
	for i := 0; i < osz; i++ {
		state.output.Set(i, l.tables.Sigmoid(l.wo.DotRow(state.hidden, i)))
	}
}

func (l *nsLoss) predict(k int, threshold float32, heap *Heap, state *State) {
	l.computeOutput(state)
	for i := 0; i < state.output.Len(); i++ {
		if v := state.output.At(i); v >= threshold {
			heap.Push(Prediction{Score: v, Label: int32(i)})
		}
	}
}
