package fslm

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

func TestSkipPastNewline(t *testing.T) {
	data := []byte("abc\ndef\nghi")
	if got := skipPastNewline(data, 0); got != 4 {
		t.Errorf("skipPastNewline(0) = %d; want 4", got)
	}
	if got := skipPastNewline(data, 4); got != 8 {
		t.Errorf("skipPastNewline(4) = %d; want 8", got)
	}
	// No more newlines: lands past the end of the buffer.
	if got := skipPastNewline(data, 8); got != int64(len(data)) {
		t.Errorf("skipPastNewline(8) = %d; want %d", got, len(data))
	}
}

func writeTempCorpus(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestTrainerRunSupervisedConvergesOnTinyCorpus(t *testing.T) {
	args := newTestArgs()
	args.Dim = 8
	args.Model = ModelSup
	args.Loss = LossSoftmax
	args.Thread = 1
	args.Epoch = 20
	args.Lr = 0.5

	path := writeTempCorpus(t, supervisedCorpus)
	dict := NewDictionary(args)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := dict.ReadFromFile(f); err != nil {
		f.Close()
		t.Fatalf("ReadFromFile: %v", err)
	}
	f.Close()

	rng := NewRand(1)
	wi := NewDenseMatrix(dict.NWords()+args.Bucket, args.Dim)
	wi.Uniform(rng, 1.0/float32(args.Dim))
	wo := NewDenseMatrix(dict.NLabels(), args.Dim)

	model := NewModelForArgs(wi, wo, NewSoftmaxLoss(wo), args)
	trainer := NewTrainer(model, dict, args)
	if err := trainer.Run(path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p := trainer.Progress(); p != 1 {
		t.Errorf("Progress() after completed run = %v; want 1", p)
	}

	// A few epochs over a three-line, two-label corpus should let the
	// model fit at least one line of its own training data.
	state := NewState(args.Dim, dict.NLabels(), 0)
	cf, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cf.Close()
	r := bufio.NewReader(cf)
	correct, total := 0, 0
	for {
		words, labels, _, lerr := dict.GetLine(r, nil)
		if len(words) > 0 && len(labels) > 0 {
			pred := model.Predict(words, 1, 0, state)
			total++
			if len(pred) > 0 && pred[0].Label == labels[0] {
				correct++
			}
		}
		if lerr != nil {
			break
		}
	}
	if total == 0 {
		t.Fatal("expected at least one labeled line from the corpus")
	}
	if correct == 0 {
		t.Errorf("expected the trained model to fit at least one of %d training examples", total)
	}
}
