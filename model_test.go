package fslm

import "testing"

func TestModelForwardAveragesInputRows(t *testing.T) {
	wi := NewDenseMatrix(3, 2)
	wi.AddVectorToRow(vecOf(1, 1), 0, 1)
	wi.AddVectorToRow(vecOf(3, 3), 1, 1)
	wi.AddVectorToRow(vecOf(100, 100), 2, 1)

	wo := NewDenseMatrix(4, 2)
	model := NewModel(wi, wo, NewSoftmaxLoss(wo), NewArgs(), false)
	state := NewState(2, 4, 1)
	model.Forward([]int32{0, 1}, state)
	if state.hidden.At(0) != 2 || state.hidden.At(1) != 2 {
		t.Errorf("hidden = [%v %v]; want [2 2]", state.hidden.At(0), state.hidden.At(1))
	}
}

func TestModelForwardEmptyInputZeroesHidden(t *testing.T) {
	wi := NewDenseMatrix(1, 2)
	wo := NewDenseMatrix(2, 2)
	model := NewModel(wi, wo, NewSoftmaxLoss(wo), NewArgs(), false)
	state := NewState(2, 2, 1)
	state.hidden.Set(0, 9)
	model.Forward(nil, state)
	if state.hidden.At(0) != 0 || state.hidden.At(1) != 0 {
		t.Errorf("expected zeroed hidden on empty input; got [%v %v]", state.hidden.At(0), state.hidden.At(1))
	}
}

func TestModelUpdateReducesTargetLoss(t *testing.T) {
	rng := NewRand(1)
	wi := NewDenseMatrix(5, 4)
	wi.Uniform(rng, 0.5)
	wo := NewDenseMatrix(3, 4)
	wo.Uniform(rng, 0.5)

	args := NewArgs()
	args.Model = ModelSup
	model := NewModelForArgs(wi, wo, NewSoftmaxLoss(wo), args)
	state := NewState(4, 3, 1)

	input := []int32{0, 1, 2}
	targets := []int32{1}

	model.Forward(input, state)
	before := model.loss.Forward(targets, 0, state, 0, false)

	for i := 0; i < 100; i++ {
		model.Update(input, targets, 0, 0.5, state)
	}

	model.Forward(input, state)
	after := model.loss.Forward(targets, 0, state, 0, false)
	if after >= before {
		t.Errorf("loss did not decrease after training: before=%v after=%v", before, after)
	}
}

func TestModelPredictReturnsSortedTopK(t *testing.T) {
	wi := NewDenseMatrix(2, 3)
	wi.Uniform(NewRand(1), 0.5)
	wo := NewDenseMatrix(5, 3)
	wo.Uniform(NewRand(2), 0.5)
	model := NewModelForArgs(wi, wo, NewSoftmaxLoss(wo), NewArgs())
	state := NewState(3, 5, 1)

	got := model.Predict([]int32{0, 1}, 3, 0, state)
	if len(got) != 3 {
		t.Fatalf("expected 3 predictions; got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("predictions not sorted descending at index %d: %+v", i, got)
		}
	}
}
