package fslm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
)

// modelMagic begins every saved model, the same role hashedMagic plays
// in the teacher's binary format: a quick sanity check before trusting
// the rest of the file.
const modelMagic = "#fslm.model"

// matrixKind records which Matrix implementation a saved row-store
// used, so Load knows which concrete type to allocate.
type matrixKind uint8

const (
	matrixDense matrixKind = iota
	matrixQuantized
)

// modelHeader is everything about a saved model except the bulk
// matrix weights, which follow as raw Matrix.Save blocks the same way
// hashed.go's WriteBinary lays its transition buckets out right after
// a gob-encoded header.
type modelHeader struct {
	Args        Args
	Entries     []Entry
	Ntokens     uint64
	LabelCounts []uint64
	InputKind   matrixKind
	OutputKind  matrixKind
}

// SaveModel writes model's weights and dict's vocabulary to path.
func SaveModel(path string, model *Model, dict *Dictionary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.Write([]byte(modelMagic)); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}

	header := modelHeader{
		Args:        *model.args,
		Entries:     dict.Entries(),
		Ntokens:     dict.NTokens(),
		LabelCounts: dict.OutputCounts(),
		InputKind:   kindOf(model.wi),
		OutputKind:  kindOf(model.wo),
	}
	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(&header); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	lenBytes := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenBytes, uint64(buf.Len()))
	if _, err = w.Write(lenBytes[:n]); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	if _, err = w.Write(buf.Bytes()); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	if err = model.wi.Save(w); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	if err = model.wo.Save(w); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	if err = w.Flush(); err != nil {
		return &Error{Kind: ErrIO, Context: path, Err: err}
	}
	return nil
}

func kindOf(m Matrix) matrixKind {
	if _, ok := m.(*QuantizedMatrix); ok {
		return matrixQuantized
	}
	return matrixDense
}

func allocMatrix(kind matrixKind) Matrix {
	switch kind {
	case matrixQuantized:
		return &QuantizedMatrix{}
	default:
		return &DenseMatrix{}
	}
}

// LoadModel is the inverse of SaveModel: it reconstructs the
// dictionary, matrices and the Loss matching args.Loss/args.Model.
func LoadModel(path string) (model *Model, dict *Dictionary, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &Error{Kind: ErrIO, Context: path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(modelMagic))
	if _, err = io.ReadFull(r, magic); err != nil {
		return nil, nil, &Error{Kind: ErrIO, Context: path, Err: err}
	}
	if string(magic) != modelMagic {
		return nil, nil, &Error{Kind: ErrMalformedModel, Context: path}
	}

	headerLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, nil, &Error{Kind: ErrMalformedModel, Context: path, Err: err}
	}
	headerBytes := make([]byte, headerLen)
	if _, err = io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, &Error{Kind: ErrMalformedModel, Context: path, Err: err}
	}
	var header modelHeader
	if err = gob.NewDecoder(bytes.NewReader(headerBytes)).Decode(&header); err != nil {
		return nil, nil, &Error{Kind: ErrMalformedModel, Context: path, Err: err}
	}

	args := header.Args
	dict = RestoreDictionary(&args, header.Entries, header.Ntokens)

	wi := allocMatrix(header.InputKind)
	if err = wi.Load(r); err != nil {
		return nil, nil, &Error{Kind: ErrMalformedModel, Context: path, Err: err}
	}
	wo := allocMatrix(header.OutputKind)
	if err = wo.Load(r); err != nil {
		return nil, nil, &Error{Kind: ErrMalformedModel, Context: path, Err: err}
	}

	loss := newLossForArgs(&args, wo, header.LabelCounts)
	model = NewModelForArgs(wi, wo, loss, &args)
	return model, dict, nil
}

// newLossForArgs builds the Loss variant args.Loss names, wired to wo
// and (for ns/hs) the unigram counts used to shape sampling/the tree.
func newLossForArgs(args *Args, wo Matrix, counts []uint64) *Loss {
	switch args.Loss {
	case LossNS:
		return NewNSLoss(wo, counts, args.Neg)
	case LossHS:
		return NewHSLoss(wo, counts)
	case LossOVA:
		return NewOVALoss(wo)
	default:
		return NewSoftmaxLoss(wo)
	}
}
