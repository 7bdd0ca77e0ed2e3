package fslm

// State is one worker's scratchpad: hidden/output/grad vectors, a
// running loss accumulator, and its own RNG. Exactly one goroutine
// owns a State for its whole lifetime.
type State struct {
	hidden *Vector
	output *Vector
	grad   *Vector

	lossValue float64
	nexamples int64

	rng *Rand
}

// NewState allocates a worker scratchpad for a model of the given
// hidden dimension and output class count, seeded independently.
func NewState(dim, nclasses int, seed int64) *State {
	return &State{
		hidden: NewVector(dim),
		output: NewVector(nclasses),
		grad:   NewVector(dim),
		rng:    NewRand(seed),
	}
}

func (s *State) Hidden() *Vector { return s.hidden }
func (s *State) Output() *Vector { return s.output }
func (s *State) Grad() *Vector   { return s.grad }
func (s *State) Rng() *Rand      { return s.rng }

// MeanLoss returns the running average loss over all updates so far.
func (s *State) MeanLoss() float64 {
	if s.nexamples == 0 {
		return 0
	}
	return s.lossValue / float64(s.nexamples)
}

// Model couples the input/output matrices with a Loss and performs
// the hidden-layer forward pass and backpropagation into both
// matrices. wi and wo are shared, read-mostly (row-update) state
// across worker goroutines: see train.go for the Hogwild! discipline
// that makes this safe in practice.
type Model struct {
	wi   Matrix
	wo   Matrix
	loss *Loss
	args *Args

	// normalizeGradient divides the accumulated backprop gradient by
	// the input size before it is added back into wi. Supervised
	// training normalizes this way; cbow/skipgram do not, since their
	// losses already operate on an unnormalized hidden average.
	normalizeGradient bool
}

// NewModel assembles a Model around already-constructed matrices and
// a loss. Callers choose normalizeGradient explicitly; NewModelForArgs
// below picks it the conventional way from args.Model.
func NewModel(wi, wo Matrix, loss *Loss, args *Args, normalizeGradient bool) *Model {
	return &Model{wi: wi, wo: wo, loss: loss, args: args, normalizeGradient: normalizeGradient}
}

func NewModelForArgs(wi, wo Matrix, loss *Loss, args *Args) *Model {
	return NewModel(wi, wo, loss, args, args.Model == ModelSup)
}

func (m *Model) InputMatrix() Matrix  { return m.wi }
func (m *Model) OutputMatrix() Matrix { return m.wo }

// Args returns the configuration the model was built with. Callers
// that mutate it (e.g. cmd/quantize adjusting Qout/Qnorm before
// re-saving) are responsible for keeping it consistent with the
// matrices actually stored on the Model.
func (m *Model) Args() *Args { return m.args }

// Forward averages the input rows into state.hidden. A no-op (leaves
// hidden zeroed) when input is empty.
func (m *Model) Forward(input []int32, state *State) {
	state.hidden.Zero()
	if len(input) == 0 {
		return
	}
	for _, i := range input {
		m.wi.AddRowToVector(state.hidden, int(i))
	}
	state.hidden.Scale(1 / float32(len(input)))
}

// Update runs one training example end to end: forward, loss-coupled
// backward, and the accumulation of grad back into wi. No-op on empty
// input. Accumulates into state.lossValue/nexamples.
func (m *Model) Update(input []int32, targets []int32, targetIndex int, lr float32, state *State) {
	if len(input) == 0 || len(targets) == 0 {
		return
	}
	m.Forward(input, state)
	state.grad.Zero()
	loss := m.loss.Forward(targets, targetIndex, state, lr, true)
	state.lossValue += float64(loss)
	state.nexamples++

	if m.normalizeGradient {
		state.grad.Scale(1 / float32(len(input)))
	}
	for _, i := range input {
		m.wi.AddVectorToRow(state.grad, int(i), 1.0)
	}
}

// Predict runs the forward pass and asks the loss for its top-k
// predictions above threshold.
func (m *Model) Predict(input []int32, k int, threshold float32, state *State) []Prediction {
	m.Forward(input, state)
	heap := NewHeap(k)
	m.loss.Predict(k, threshold, heap, state)
	return heap.Sorted()
}
