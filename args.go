package fslm

// ModelKind selects the training objective's input representation.
type ModelKind string

const (
	ModelCBOW ModelKind = "cbow"
	ModelSG   ModelKind = "sg"
	ModelSup  ModelKind = "sup"
)

// LossKind selects the output loss formulation.
type LossKind string

const (
	LossSoftmax LossKind = "softmax"
	LossNS      LossKind = "ns"
	LossHS      LossKind = "hs"
	LossOVA     LossKind = "ova"
)

// AutotuneArgs groups the autotune-related knobs. Autotuning itself
// (the search loop) is out of scope; these fields are carried through
// so a future driver has somewhere to put them, the way the teacher
// threads flag values into structs it doesn't otherwise interpret.
type AutotuneArgs struct {
	ValidationFile  string
	Metric          string
	PredictionsK    int
	DurationSeconds int
	ModelSizeBudget int64
}

// Args is the single configuration record threaded through Dictionary
// construction, the training loop, and the CLI surface in cmd/.
type Args struct {
	Input  string
	Output string

	Lr           float32
	LrUpdateRate int
	Dim          int
	Ws           int
	Epoch        int
	MinCount     int
	MinCountLabel int
	Neg          int
	WordNgrams   int
	Loss         LossKind
	Model        ModelKind
	Bucket       int
	Minn         int
	Maxn         int
	Thread       int
	T            float32
	Label        string
	Verbose      int

	PretrainedVectors string
	SaveOutput        bool
	Seed              int64

	Qout    bool
	Retrain bool
	Qnorm   bool
	Cutoff  int
	Dsub    int

	Autotune AutotuneArgs
}

// NewArgs returns the recognized defaults from the specification.
func NewArgs() *Args {
	return &Args{
		Lr:            0.05,
		LrUpdateRate:  100,
		Dim:           100,
		Ws:            5,
		Epoch:         5,
		MinCount:      5,
		MinCountLabel: 0,
		Neg:           5,
		WordNgrams:    1,
		Loss:          LossSoftmax,
		Model:         ModelSup,
		Bucket:        2000000,
		Minn:          3,
		Maxn:          6,
		Thread:        12,
		T:             1e-4,
		Label:         "__label__",
		Verbose:       2,
		Seed:          0,
		Dsub:          2,
	}
}

// Validate checks configuration-error-class invariants that must be
// caught before any training or quantization work begins.
func (a *Args) Validate() error {
	if a.Minn > a.Maxn {
		return &Error{Kind: ErrConfiguration, Context: "minn must not exceed maxn"}
	}
	if a.Qout && a.Model != ModelSup {
		return &Error{Kind: ErrConfiguration, Context: "quantization requires a supervised model"}
	}
	return nil
}
