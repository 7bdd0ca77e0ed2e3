package fslm

// Heap is a bounded, descending-sorted sequence of (score, label)
// predictions, capped at k. Once full, it rejects a prediction that
// does not rank above its current lowest item; score thresholds are
// applied by the caller before Push. Ties are broken by lower label id first, the
// same comparator the teacher's byWord sort in sorted.go uses for its
// own sorted transition lists.
type Heap struct {
	k     int
	items []Prediction
}

// NewHeap allocates a heap with room for at most k items. k <= 0 means
// unbounded.
func NewHeap(k int) *Heap {
	return &Heap{k: k}
}

func less(a, b Prediction) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Label < b.Label
}

// Push considers p for inclusion, maintaining descending-score order
// and the size cap.
func (h *Heap) Push(p Prediction) {
	if h.k > 0 && len(h.items) >= h.k {
		if !less(p, h.items[len(h.items)-1]) {
			return
		}
	}
	// Insertion sort into place: k is always small.
	i := len(h.items)
	h.items = append(h.items, p)
	for i > 0 && less(h.items[i], h.items[i-1]) {
		h.items[i], h.items[i-1] = h.items[i-1], h.items[i]
		i--
	}
	if h.k > 0 && len(h.items) > h.k {
		h.items = h.items[:h.k]
	}
}

// Sorted returns the current contents, highest score first.
func (h *Heap) Sorted() []Prediction {
	out := make([]Prediction, len(h.items))
	copy(out, h.items)
	return out
}
