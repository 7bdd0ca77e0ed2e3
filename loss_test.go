package fslm

import (
	"math"
	"testing"
)

func newLossState(dim, nclasses int) *State {
	s := NewState(dim, nclasses, 1)
	for i := 0; i < dim; i++ {
		s.hidden.Set(i, 0.1*float32(i+1))
	}
	return s
}

func TestSoftmaxLossOutputSumsToOne(t *testing.T) {
	wo := NewDenseMatrix(4, 3)
	wo.Uniform(NewRand(1), 0.5)
	loss := NewSoftmaxLoss(wo)
	state := newLossState(3, 4)
	loss.ComputeOutput(state)
	var sum float32
	for i := 0; i < state.output.Len(); i++ {
		sum += state.output.At(i)
	}
	if diff := sum - 1; diff > 1e-3 || diff < -1e-3 {
		t.Errorf("softmax output sums to %v; want 1", sum)
	}
}

func TestSoftmaxLossForwardReducesLossWithTraining(t *testing.T) {
	wo := NewDenseMatrix(4, 3)
	wo.Uniform(NewRand(1), 0.5)
	loss := NewSoftmaxLoss(wo)
	state := newLossState(3, 4)
	target := []int32{2}

	first := loss.Forward(target, 0, state, 0.1, true)
	for i := 0; i < 50; i++ {
		loss.Forward(target, 0, state, 0.1, true)
	}
	last := loss.Forward(target, 0, state, 0.1, true)
	if last >= first {
		t.Errorf("loss did not decrease with training: first=%v last=%v", first, last)
	}
}

func TestSoftmaxLossPredictRespectsThreshold(t *testing.T) {
	wo := NewDenseMatrix(2, 3)
	loss := NewSoftmaxLoss(wo)
	state := newLossState(3, 2)
	heap := NewHeap(2)
	loss.Predict(2, 0.9, heap, state)
	// With an untrained all-zero matrix, softmax is uniform (0.5 each),
	// below a 0.9 threshold.
	if got := heap.Sorted(); len(got) != 0 {
		t.Errorf("expected no predictions above threshold; got %v", got)
	}
}

func TestNSLossForwardReducesLossWithTraining(t *testing.T) {
	wo := NewDenseMatrix(5, 3)
	wo.Uniform(NewRand(1), 0.5)
	counts := []uint64{10, 20, 5, 1, 1}
	loss := NewNSLoss(wo, counts, 3)
	state := newLossState(3, 5)
	target := []int32{1}

	first := loss.Forward(target, 0, state, 0.2, true)
	for i := 0; i < 50; i++ {
		loss.Forward(target, 0, state, 0.2, true)
	}
	last := loss.Forward(target, 0, state, 0.2, true)
	if last >= first {
		t.Errorf("loss did not decrease with training: first=%v last=%v", first, last)
	}
}

func TestNegativeSamplerNeverReturnsOutOfRange(t *testing.T) {
	counts := []uint64{1, 2, 3, 4}
	s := newNegativeSampler(counts)
	rng := NewRand(2)
	for i := 0; i < 1000; i++ {
		id := s.sample(rng)
		if id < 0 || int(id) >= len(counts) {
			t.Fatalf("sample() = %d out of range [0, %d)", id, len(counts))
		}
	}
}

func TestNegativeSamplerZeroCountsReturnsZero(t *testing.T) {
	s := newNegativeSampler([]uint64{0, 0})
	if got := s.sample(NewRand(1)); got != 0 {
		t.Errorf("sample() with all-zero counts = %d; want 0", got)
	}
}

func TestOVALossTrainsIndependentRows(t *testing.T) {
	wo := NewDenseMatrix(4, 3)
	wo.Uniform(NewRand(1), 0.5)
	loss := NewOVALoss(wo)
	state := newLossState(3, 4)
	targets := []int32{0, 2}

	first := loss.Forward(targets, 0, state, 0.2, true)
	for i := 0; i < 50; i++ {
		loss.Forward(targets, 0, state, 0.2, true)
	}
	last := loss.Forward(targets, 0, state, 0.2, true)
	if last >= first {
		t.Errorf("loss did not decrease with training: first=%v last=%v", first, last)
	}

	loss.ComputeOutput(state)
	if state.output.At(0) <= state.output.At(1) {
		t.Errorf("trained positive label 0 scored %v, not above untrained label 1 %v",
			state.output.At(0), state.output.At(1))
	}
}

func TestHSLossPathsCoverAllLabelsWithMatchingCodeLengths(t *testing.T) {
	counts := []uint64{50, 30, 10, 5, 1}
	wo := NewDenseMatrix(len(counts)-1, 3)
	loss := NewHSLoss(wo, counts)
	hs := loss.impl.(*hsLoss)

	if len(hs.paths) != len(counts) {
		t.Fatalf("expected %d paths; got %d", len(counts), len(hs.paths))
	}
	for label, path := range hs.paths {
		if len(path) == 0 {
			t.Errorf("label %d has an empty path", label)
		}
		if len(path) != len(hs.codes[label]) {
			t.Errorf("label %d: path length %d != code length %d", label, len(path), len(hs.codes[label]))
		}
	}
}

func TestHSLossComputeOutputSumsToOne(t *testing.T) {
	counts := []uint64{50, 30, 10, 5, 1}
	wo := NewDenseMatrix(len(counts)-1, 3)
	wo.Uniform(NewRand(1), 0.5)
	loss := NewHSLoss(wo, counts)
	state := newLossState(3, len(counts))
	loss.ComputeOutput(state)

	var sum float32
	for i := 0; i < state.output.Len(); i++ {
		sum += state.output.At(i)
	}
	if diff := float64(sum) - 1; math.Abs(diff) > 1e-2 {
		t.Errorf("hierarchical softmax output sums to %v; want ~1", sum)
	}
}

func TestHSLossSingleLabelDegenerateTree(t *testing.T) {
	counts := []uint64{7}
	wo := NewDenseMatrix(0, 3)
	loss := NewHSLoss(wo, counts)
	state := newLossState(3, 1)
	// forward on the only label should not panic even with an empty path.
	loss.Forward([]int32{0}, 0, state, 0.1, true)
}

func TestHSLossForwardReducesLossWithTraining(t *testing.T) {
	counts := []uint64{50, 30, 10, 5, 1}
	wo := NewDenseMatrix(len(counts)-1, 3)
	wo.Uniform(NewRand(1), 0.5)
	loss := NewHSLoss(wo, counts)
	state := newLossState(3, len(counts))
	target := []int32{2}

	first := loss.Forward(target, 0, state, 0.2, true)
	for i := 0; i < 50; i++ {
		loss.Forward(target, 0, state, 0.2, true)
	}
	last := loss.Forward(target, 0, state, 0.2, true)
	if last >= first {
		t.Errorf("loss did not decrease with training: first=%v last=%v", first, last)
	}
}
