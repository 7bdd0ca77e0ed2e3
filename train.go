package fslm

import (
	"bufio"
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// Trainer drives Hogwild!-style unsynchronized SGD: args.Thread
// worker goroutines each own a byte range of the mmap'd corpus and a
// private State, but all read and write the same wi/wo matrices with
// no locking. Two goroutines racing on the same row occasionally
// stomp on each other's update; in practice that is rare enough, and
// cheap enough when it happens, that it is faster to allow it than to
// synchronize every row write (see SPEC_FULL.md's concurrency notes).
type Trainer struct {
	model *Model
	dict  *Dictionary
	args  *Args

	tokenCount  int64 // atomic; total tokens consumed across all workers
	totalTokens int64 // args.Epoch * dict.NTokens(), for the lr schedule
}

// NewTrainer wires a Trainer around an already-constructed model and
// dictionary.
func NewTrainer(model *Model, dict *Dictionary, args *Args) *Trainer {
	return &Trainer{
		model:       model,
		dict:        dict,
		args:        args,
		totalTokens: int64(args.Epoch) * int64(dict.NTokens()),
	}
}

// Progress is the fraction of training completed so far, in [0, 1].
func (t *Trainer) Progress() float64 {
	if t.totalTokens == 0 {
		return 1
	}
	p := float64(atomic.LoadInt64(&t.tokenCount)) / float64(t.totalTokens)
	if p > 1 {
		p = 1
	}
	return p
}

func (t *Trainer) lr() float32 {
	return t.args.Lr * float32(1-t.Progress())
}

// Run launches args.Thread workers, each scanning its own byte range
// of path once per epoch, and blocks until all of them finish.
func (t *Trainer) Run(path string) error {
	mapped, err := OpenMappedFile(path)
	if err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	defer mapped.Close()

	nthreads := t.args.Thread
	if nthreads <= 0 {
		nthreads = 1
	}
	data := mapped.Bytes()
	size := int64(len(data))
	chunk := size / int64(nthreads)
	if chunk == 0 {
		chunk = size
		nthreads = 1
	}

	var wg sync.WaitGroup
	wg.Add(nthreads)
	for i := 0; i < nthreads; i++ {
		start := int64(i) * chunk
		end := start + chunk
		if i == nthreads-1 {
			end = size
		}
		go func(worker int, start, end int64) {
			defer wg.Done()
			t.runWorker(worker, data, start, end)
		}(i, start, end)
	}
	wg.Wait()
	return nil
}

// runWorker repeatedly reads lines from data[start:end] (rounded to
// whole lines), training on each, for args.Epoch epochs.
func (t *Trainer) runWorker(worker int, data []byte, start, end int64) {
	state := NewState(t.args.Dim, t.model.wo.Rows(), t.args.Seed+int64(worker))
	updateRate := t.args.LrUpdateRate
	if updateRate <= 0 {
		updateRate = 1
	}
	localUpdates := 0
	lr := t.lr()
	for epoch := 0; epoch < t.args.Epoch; epoch++ {
		pos := start
		if pos > 0 {
			pos = skipPastNewline(data, pos)
		}
		src := bytes.NewReader(data[pos:])
		r := bufio.NewReader(src)
		for {
			// lr only tracks overall progress, so recomputing it on every
			// example is correct; doing so only every LrUpdateRate
			// examples per thread just avoids paying for it that often.
			if localUpdates%updateRate == 0 {
				lr = t.lr()
			}
			localUpdates++

			ntokens, err := t.trainLine(r, state, lr)
			tc := atomic.AddInt64(&t.tokenCount, int64(ntokens))
			if worker == 0 && glog.V(1) && tc/1000000 != (tc-int64(ntokens))/1000000 {
				glog.Infof("progress %.1f%% lr=%.5f loss=%.4f", t.Progress()*100, lr, state.MeanLoss())
			}
			if err != nil {
				break
			}
			// src.Size()-src.Len() is how much bufio has pulled from the
			// slice; minus what is still buffered, it is how far this
			// worker has actually read. The epoch ends after the first
			// line that reaches end; each epoch restarts from this
			// worker's own `start`.
			if pos+(src.Size()-int64(src.Len()))-int64(r.Buffered()) >= end {
				break
			}
		}
	}
}

func skipPastNewline(data []byte, pos int64) int64 {
	for pos < int64(len(data)) && data[pos] != '\n' {
		pos++
	}
	if pos < int64(len(data)) {
		pos++
	}
	return pos
}

// trainLine reads one line and runs the model updates it implies,
// dispatching on args.Model the way the original per-architecture
// training loops do.
func (t *Trainer) trainLine(r *bufio.Reader, state *State, lr float32) (ntokens int, err error) {
	switch t.args.Model {
	case ModelSup:
		words, labels, n, lerr := t.dict.GetLine(r, state.rng)
		ntokens, err = n, lerr
		if len(labels) == 0 || len(words) == 0 {
			return
		}
		if t.args.Loss == LossOVA {
			t.model.Update(words, labels, 0, lr, state)
		} else {
			for i := range labels {
				t.model.Update(words, labels, i, lr, state)
			}
		}
	default:
		words, n, lerr := t.dict.GetLineWords(r, state.rng)
		ntokens, err = n, lerr
		t.trainContextWindows(words, lr, state)
	}
	return
}

// trainContextWindows implements cbow and skipgram: for each position
// c in words, a window of width uniformly drawn in [1, args.Ws] is
// taken around it. cbow predicts the center word from the averaged
// input of the window; skipgram predicts each window word from the
// center word alone.
func (t *Trainer) trainContextWindows(words []int32, lr float32, state *State) {
	if len(words) == 0 {
		return
	}
	ws := t.args.Ws
	if ws <= 0 {
		ws = 1
	}
	for c := range words {
		winSize := 1 + state.rng.Intn(ws)
		lo := c - winSize
		if lo < 0 {
			lo = 0
		}
		hi := c + winSize
		if hi >= len(words) {
			hi = len(words) - 1
		}
		if t.args.Model == ModelCBOW {
			var input []int32
			for j := lo; j <= hi; j++ {
				if j == c {
					continue
				}
				input = append(input, t.dict.EntryAt(int(words[j])).Subwords...)
			}
			if len(input) == 0 {
				continue
			}
			t.model.Update(input, words[c:c+1], 0, lr, state)
		} else { // skipgram
			input := t.dict.EntryAt(int(words[c])).Subwords
			for j := lo; j <= hi; j++ {
				if j == c {
					continue
				}
				t.model.Update(input, words[j:j+1], 0, lr, state)
			}
		}
	}
}
