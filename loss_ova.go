package fslm

// ovaLoss treats every label as an independent binary decision: each
// row of wo is its own logistic regression, trained against "is this
// example tagged with label i or not". Unlike softmax, multiple
// labels can score above threshold at once.
type ovaLoss struct {
	wo     Matrix
	tables *lossTables
}

// NewOVALoss builds a one-vs-all Loss over output matrix wo.
func NewOVALoss(wo Matrix) *Loss {
	return &Loss{kind: LossOVA, impl: &ovaLoss{wo: wo, tables: newLossTables()}}
}

func (l *ovaLoss) binaryLogistic(row int32, positive bool, state *State, lr float32, backprop bool) float32 {
	score := l.tables.Sigmoid(l.wo.DotRow(state.hidden, int(row)))
	if backprop {
		label := float32(0)
		if positive {
			label = 1
		}
		alpha := lr * (label - score)
		l.wo.AddRowToVectorScaled(state.grad, int(row), alpha)
		l.wo.AddVectorToRow(state.hidden, int(row), alpha)
	}
	if positive {
		return -l.tables.Log(score)
	}
	return -l.tables.Log(1 - score)
}

// forward treats every entry in targets as a positive label for this
// example and every other row as negative; targetIndex is unused
// since one-vs-all trains on the whole target set at once.
func (l *ovaLoss) forward(targets []int32, _ int, state *State, lr float32, backprop bool) float32 {
	positive := make(map[int32]bool, len(targets))
	for _, t := range targets {
		positive[t] = true
	}
	osz := l.wo.Rows()
	var loss float32
	for i := 0; i < osz; i++ {
		loss += l.binaryLogistic(int32(i), positive[int32(i)], state, lr, backprop)
	}
	return loss
}

func (l *ovaLoss) computeOutput(state *State) {
	osz := l.wo.Rows()
	for i := 0; i < osz; i++ {
		state.output.Set(i, l.tables.Sigmoid(l.wo.DotRow(state.hidden, i)))
	}
}

func (l *ovaLoss) predict(k int, threshold float32, heap *Heap, state *State) {
	l.computeOutput(state)
	for i := 0; i < state.output.Len(); i++ {
		if v := state.output.At(i); v >= threshold {
			heap.Push(Prediction{Score: v, Label: int32(i)})
		}
	}
}
