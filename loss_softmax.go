package fslm

// softmaxLoss is the full-softmax output layer: every forward pass
// touches every class, so it is only practical for small label sets.
type softmaxLoss struct {
	wo Matrix
}

// NewSoftmaxLoss builds a softmax Loss over output matrix wo (one row
// per class).
func NewSoftmaxLoss(wo Matrix) *Loss {
	return &Loss{kind: LossSoftmax, impl: &softmaxLoss{wo: wo}}
}

func (l *softmaxLoss) computeOutput(state *State) {
	osz := l.wo.Rows()
	out := state.output
	for i := 0; i < osz; i++ {
		out.Set(i, l.wo.DotRow(state.hidden, i))
	}
	max := out.At(0)
	for i := 1; i < osz; i++ {
		if v := out.At(i); v > max {
			max = v
		}
	}
	var sum float32
	for i := 0; i < osz; i++ {
		v := expf32(out.At(i) - max)
		out.Set(i, v)
		sum += v
	}
	for i := 0; i < osz; i++ {
		out.Set(i, out.At(i)/sum)
	}
}

func (l *softmaxLoss) forward(targets []int32, targetIndex int, state *State, lr float32, backprop bool) float32 {
	target := targets[targetIndex]
	l.computeOutput(state)
	loss := -logf32(state.output.At(int(target)))
	if backprop {
		osz := l.wo.Rows()
		for i := 0; i < osz; i++ {
			label := float32(0)
			if int32(i) == target {
				label = 1
			}
			alpha := lr * (label - state.output.At(i))
			l.wo.AddRowToVectorScaled(state.grad, i, alpha)
			l.wo.AddVectorToRow(state.hidden, i, alpha)
		}
	}
	return loss
}

func (l *softmaxLoss) predict(k int, threshold float32, heap *Heap, state *State) {
	l.computeOutput(state)
	out := state.output
	for i := 0; i < out.Len(); i++ {
		if out.At(i) >= threshold {
			heap.Push(Prediction{Score: out.At(i), Label: int32(i)})
		}
	}
}
