package fslm

import (
	"bufio"
	"io"
	"math"
	"sort"

	"github.com/golang/glog"
)

// maxVocabSize bounds the open-addressing word2int table. It is not a
// soft default: the table is allocated at this fixed size once and
// never resized, the way the teacher's probing buckets are allocated
// up front and only ever grown by explicit Resize calls (here we never
// grow at all, per spec).
const maxVocabSize = 30000000

const eosToken = "</s>"

// entryKind distinguishes vocabulary words from classification labels.
type entryKind uint8

const (
	entryWord entryKind = iota
	entryLabel
)

// Entry is one dictionary record: a surface token, its occurrence
// count, its kind, and (for words) the subword ids used to compute its
// embedding.
type Entry struct {
	Word     string
	Count    uint64
	Kind     entryKind
	Subwords []int32
}

// Dictionary turns a raw token stream into feature and label id
// sequences. See find/add for the open-addressing word2int table this
// is built on.
type Dictionary struct {
	args *Args

	entries  []Entry
	word2int []int32 // fixed capacity maxVocabSize; -1 means empty.

	pdiscard []float32
	pruneidx map[int32]int32

	nwords, nlabels int
	ntokens         uint64
}

// NewDictionary allocates an empty dictionary governed by args (minn,
// maxn, bucket, label prefix, sampling threshold t, ...).
func NewDictionary(args *Args) *Dictionary {
	d := &Dictionary{
		args:     args,
		word2int: make([]int32, maxVocabSize),
	}
	for i := range d.word2int {
		d.word2int[i] = -1
	}
	return d
}

func (d *Dictionary) NWords() int        { return d.nwords }
func (d *Dictionary) NLabels() int       { return d.nlabels }
func (d *Dictionary) NTokens() uint64    { return d.ntokens }
func (d *Dictionary) Size() int          { return len(d.entries) }
func (d *Dictionary) Bucket() int        { return d.args.Bucket }
func (d *Dictionary) EntryAt(i int) Entry { return d.entries[i] }

// hashToken is the FNV-1a variant fastText-style implementations use:
// 32-bit, sign-extending each byte to int8 before folding it in.
func hashToken(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}

// find locates w in the open-addressing table, linearly probing from
// hash(w) % maxVocabSize until it hits an empty slot or a match.
// Returns the slot index and the entry id stored there (-1 if empty).
func (d *Dictionary) find(w string) (slot int32, id int32) {
	slot = int32(hashToken(w) % uint32(len(d.word2int)))
	for d.word2int[slot] != -1 && d.entries[d.word2int[slot]].Word != w {
		slot = (slot + 1) % int32(len(d.word2int))
	}
	return slot, d.word2int[slot]
}

func (d *Dictionary) labelPrefix() string {
	if d.args.Label == "" {
		return "__label__"
	}
	return d.args.Label
}

// add records one observed token: a new Entry on first sight, an
// incremented count on repeat. ntokens always advances.
func (d *Dictionary) add(w string) {
	slot, id := d.find(w)
	d.ntokens++
	if id == -1 {
		kind := entryWord
		if len(w) >= len(d.labelPrefix()) && w[:len(d.labelPrefix())] == d.labelPrefix() {
			kind = entryLabel
		}
		d.entries = append(d.entries, Entry{Word: w, Count: 1, Kind: kind})
		id = int32(len(d.entries) - 1)
		d.word2int[slot] = id
		if kind == entryWord {
			d.nwords++
		} else {
			d.nlabels++
		}
	} else {
		d.entries[id].Count++
	}
}

// ReadFromFile streams tokens from in, builds the vocabulary, and then
// thresholds it down to args.MinCount / args.MinCountLabel. Returns an
// *Error of kind ErrEmptyVocabulary if nothing survives.
func (d *Dictionary) ReadFromFile(in io.Reader) error {
	r := bufio.NewReaderSize(in, 1<<16)
	minThreshold := int64(1)
	for {
		tok, err := readToken(r)
		if tok != "" {
			d.add(tok)
			if d.ntokens%1000000 == 0 && glog.V(1) {
				glog.Infof("read %dM tokens", d.ntokens/1000000)
			}
			if len(d.entries) > maxVocabSize*3/4 {
				d.threshold(minThreshold, minThreshold)
				minThreshold++
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return &Error{Kind: ErrIO, Context: "reading training corpus", Err: err}
		}
	}
	d.threshold(int64(d.args.MinCount), int64(d.args.MinCountLabel))
	if d.nwords == 0 {
		return &Error{Kind: ErrEmptyVocabulary, Context: "vocabulary is empty after thresholding"}
	}
	d.initDiscard()
	d.initNgrams()
	return nil
}

// threshold stable-sorts entries so words precede labels and, within
// each kind, counts are non-increasing; drops words under t and labels
// under tl; rebuilds word2int from scratch.
func (d *Dictionary) threshold(t, tl int64) {
	sort.SliceStable(d.entries, func(i, j int) bool {
		a, b := d.entries[i], d.entries[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Count > b.Count
	})
	kept := d.entries[:0]
	for _, e := range d.entries {
		if e.Kind == entryWord && e.Count < uint64(t) {
			continue
		}
		if e.Kind == entryLabel && e.Count < uint64(tl) {
			continue
		}
		kept = append(kept, e)
	}
	d.entries = append([]Entry(nil), kept...)

	d.nwords, d.nlabels = 0, 0
	for _, e := range d.entries {
		if e.Kind == entryWord {
			d.nwords++
		} else {
			d.nlabels++
		}
	}
	for i := range d.word2int {
		d.word2int[i] = -1
	}
	for id, e := range d.entries {
		slot, _ := d.find(e.Word)
		d.word2int[slot] = int32(id)
	}
}

// initDiscard builds the subsampling discard-probability table:
// pdiscard[i] = sqrt(t/f_i) + t/f_i, f_i = count_i / ntokens.
func (d *Dictionary) initDiscard() {
	d.pdiscard = make([]float32, len(d.entries))
	t := float64(d.args.T)
	for i, e := range d.entries {
		if e.Kind != entryWord {
			continue
		}
		f := float64(e.Count) / float64(d.ntokens)
		r := t / f
		d.pdiscard[i] = float32(math.Sqrt(r) + r)
	}
}

// discard reports whether entry id should be dropped during sampling.
func (d *Dictionary) discard(id int32, rnd float32) bool {
	if d.entries[id].Kind != entryWord {
		return false
	}
	return rnd > d.pdiscard[id]
}

// initNgrams computes the subword id list for every surviving word.
func (d *Dictionary) initNgrams() {
	for i := range d.entries {
		if d.entries[i].Kind != entryWord {
			continue
		}
		d.entries[i].Subwords = d.computeSubwords(d.entries[i].Word, int32(i))
	}
}

// computeSubwords brackets w with '<'/'>' and extracts every n-gram
// whose rune length lies in [minn, maxn], skipping boundary-touching
// 1-grams; each n-gram hashes (mod bucket) into the bucketed id space
// starting at nwords. The word's own id is always the first entry.
func (d *Dictionary) computeSubwords(w string, wid int32) []int32 {
	subwords := []int32{wid}
	if w == eosToken {
		return subwords
	}
	minn, maxn := d.args.Minn, d.args.Maxn
	if minn == 0 && maxn == 0 {
		return subwords
	}
	runes := []rune("<" + w + ">")
	n := len(runes)
	startLength := minn
	if startLength < 1 {
		startLength = 1
	}
	for start := 0; start < n; start++ {
		for length := startLength; length <= maxn && start+length <= n; length++ {
			if length == 1 && (start == 0 || start+length == n) {
				continue
			}
			ngram := string(runes[start : start+length])
			h := hashToken(ngram) % uint32(d.args.Bucket)
			subwords = append(subwords, int32(d.nwords)+int32(h))
		}
	}
	return subwords
}

// addWordNgrams extends a word-id sequence with synthetic word
// n-gram ids derived from pairwise token hashes, for wordNgrams >= 2.
// A no-op when wordNgrams == 1.
func (d *Dictionary) addWordNgrams(words []int32, hashes []uint32, n int) []int32 {
	if n <= 1 {
		return words
	}
	for i := 0; i < len(hashes); i++ {
		h := hashes[i]
		for j := i + 1; j < len(hashes) && j <= i+n-1; j++ {
			h = h*116049371 + hashes[j]
			bucket := h % uint32(d.args.Bucket)
			words = append(words, int32(d.nwords)+int32(bucket))
		}
	}
	return words
}

// GetLine reads one line (terminated by </s> or EOF), returning the
// subword-expanded feature id sequence and the zero-based label id
// sequence. A word not in the vocabulary contributes its subword
// bucket ids (see WordSubwords); an unknown label-prefixed token is
// ignored. rng, if non-nil, drives frequency-based discarding of
// in-vocabulary words (not labels). Returns the raw token count read.
func (d *Dictionary) GetLine(r *bufio.Reader, rng *Rand) (words []int32, labels []int32, ntokens int, err error) {
	var hashes []uint32
	for {
		tok, rerr := readToken(r)
		if tok == "" {
			return words, labels, ntokens, rerr
		}
		ntokens++
		if tok != eosToken {
			_, id := d.find(tok)
			if id != -1 {
				if d.entries[id].Kind == entryLabel {
					labels = append(labels, id-int32(d.nwords))
				} else if rng == nil || !d.discard(id, rng.src.Float32()) {
					words = append(words, d.entries[id].Subwords...)
					hashes = append(hashes, hashToken(tok))
				}
			} else if p := d.labelPrefix(); len(tok) < len(p) || tok[:len(p)] != p {
				words = append(words, d.WordSubwords(tok)...)
				hashes = append(hashes, hashToken(tok))
			}
		}
		if tok == eosToken || rerr == io.EOF {
			break
		}
	}
	words = d.addWordNgrams(words, hashes, d.args.WordNgrams)
	return words, labels, ntokens, nil
}

// GetLineWords is the cbow/skipgram counterpart to GetLine: it
// returns one plain word id per surviving position (no label
// handling, no subword expansion) so the caller can build context
// windows positionally; subwords for a given word are looked up
// separately (via EntryAt(id).Subwords) when a window is turned into
// an input bag.
func (d *Dictionary) GetLineWords(r *bufio.Reader, rng *Rand) (words []int32, ntokens int, err error) {
	for {
		tok, rerr := readToken(r)
		if tok == "" {
			return words, ntokens, rerr
		}
		ntokens++
		if tok != eosToken {
			_, id := d.find(tok)
			if id != -1 && d.entries[id].Kind == entryWord {
				if rng == nil || !d.discard(id, rng.src.Float32()) {
					words = append(words, id)
				}
			}
		}
		if tok == eosToken || rerr == io.EOF {
			break
		}
	}
	return words, ntokens, nil
}

// WordSubwords expands an arbitrary surface word into the same
// subword bucket ids a vocabulary entry would carry, for OOV handling
// at inference time (the source's unimplemented OOV branch; see
// spec's open question in DESIGN.md).
func (d *Dictionary) WordSubwords(w string) []int32 {
	if _, id := d.find(w); id != -1 && d.entries[id].Kind == entryWord {
		return d.entries[id].Subwords[1:]
	}
	return d.computeSubwords(w, -1)[1:]
}

func (d *Dictionary) LabelString(id int32) string {
	return d.entries[int(id)+d.nwords].Word
}

func (d *Dictionary) WordString(id int32) string {
	return d.entries[id].Word
}

// OutputCounts returns the counts indexed the way the output layer
// addresses its rows: label counts in label-id order for a supervised
// model, or word counts in word-id order otherwise. NS's unigram
// sampler and HS's tree are both built from this.
func (d *Dictionary) OutputCounts() []uint64 {
	if d.args.Model == ModelSup {
		counts := make([]uint64, d.nlabels)
		for j := 0; j < d.nlabels; j++ {
			counts[j] = d.entries[d.nwords+j].Count
		}
		return counts
	}
	counts := make([]uint64, d.nwords)
	for i := 0; i < d.nwords; i++ {
		counts[i] = d.entries[i].Count
	}
	return counts
}

// Entries returns the full entry list, words then labels, in the
// order they are indexed. Used for persistence.
func (d *Dictionary) Entries() []Entry { return d.entries }

// RestoreDictionary rebuilds a Dictionary from a previously saved
// entry list and token count, the way ReadFromFile builds one from a
// live corpus: entries replay into the hash table, then the discard
// table and subword ids are rebuilt exactly as construction does.
func RestoreDictionary(args *Args, entries []Entry, ntokens uint64) *Dictionary {
	d := NewDictionary(args)
	d.ntokens = ntokens
	for _, e := range entries {
		slot, _ := d.find(e.Word)
		e.Subwords = nil
		d.entries = append(d.entries, e)
		d.word2int[slot] = int32(len(d.entries) - 1)
		if e.Kind == entryWord {
			d.nwords++
		} else {
			d.nlabels++
		}
	}
	d.initDiscard()
	d.initNgrams()
	return d
}
