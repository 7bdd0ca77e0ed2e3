package fslm

import "testing"

func TestHeapBoundedDescending(t *testing.T) {
	h := NewHeap(3)
	for _, p := range []Prediction{
		{Label: 0, Score: 0.1},
		{Label: 1, Score: 0.9},
		{Label: 2, Score: 0.5},
		{Label: 3, Score: 0.7},
		{Label: 4, Score: 0.2},
	} {
		h.Push(p)
	}
	got := h.Sorted()
	wantLabels := []int32{1, 3, 2}
	if len(got) != len(wantLabels) {
		t.Fatalf("expected %d items; got %d", len(wantLabels), len(got))
	}
	for i, want := range wantLabels {
		if got[i].Label != want {
			t.Errorf("item %d: label = %d; want %d", i, got[i].Label, want)
		}
	}
}

func TestHeapUnbounded(t *testing.T) {
	h := NewHeap(0)
	h.Push(Prediction{Label: 0, Score: 0.1})
	h.Push(Prediction{Label: 1, Score: 0.9})
	h.Push(Prediction{Label: 2, Score: 0.5})
	got := h.Sorted()
	if len(got) != 3 {
		t.Fatalf("expected 3 items; got %d", len(got))
	}
	if got[0].Label != 1 || got[2].Label != 0 {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestHeapTieBreaksByLowerLabel(t *testing.T) {
	h := NewHeap(2)
	h.Push(Prediction{Label: 5, Score: 0.5})
	h.Push(Prediction{Label: 2, Score: 0.5})
	got := h.Sorted()
	if got[0].Label != 2 || got[1].Label != 5 {
		t.Errorf("expected ties broken by lower label first; got %+v", got)
	}
}
