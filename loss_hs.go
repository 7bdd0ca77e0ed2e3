package fslm

import "sort"

// hsLoss replaces the flat output layer with a binary Huffman tree
// over label frequency: each label is a leaf, and a forward/backward
// pass only touches the O(log n) internal nodes on its root-to-leaf
// path instead of all n classes. wo holds one row per internal node
// (n-1 rows for n labels), addressed by the 0-based row indices
// produced by buildTree, the same array-of-indices style the array
// states use in builder.go's state tables.
type hsLoss struct {
	wo     Matrix
	tables *lossTables

	// paths[label] / codes[label]: internal-node rows and the bit
	// taken at each, from root to the node just above the leaf.
	paths [][]int32
	codes [][]bool

	// left[row]/right[row]: child of internal node row, as a node id
	// in the combined leaf+internal space (ids < n are leaves, ids >=
	// n are internal nodes offset by n).
	left, right []int32
	// leafOrder[i]: original label id of the i-th leaf in frequency-
	// sorted order.
	leafOrder []int32
	root      int32
}

// NewHSLoss builds a hierarchical-softmax Loss over output matrix wo,
// with the tree shaped by labelCounts.
func NewHSLoss(wo Matrix, labelCounts []uint64) *Loss {
	l := &hsLoss{wo: wo, tables: newLossTables()}
	l.buildTree(labelCounts)
	return &Loss{kind: LossHS, impl: l}
}

// buildTree runs the classic two-queue Huffman construction: leaves
// sorted by descending count merge with freshly created internal
// nodes, always combining the two smallest available weights. It
// requires leaves sorted by descending frequency, so labelCounts is
// first permuted into that order and paths are scattered back to the
// caller's original label ids at the end.
func (l *hsLoss) buildTree(labelCounts []uint64) {
	n := len(labelCounts)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return labelCounts[order[i]] > labelCounts[order[j]] })

	if n <= 1 {
		l.leafOrder = append([]int32(nil), int32Slice(order)...)
		l.root = 0
		l.paths = make([][]int32, n)
		l.codes = make([][]bool, n)
		return
	}

	total := 2*n - 1
	const infinity = int64(1) << 62
	count := make([]int64, total)
	parent := make([]int32, total)
	binary := make([]bool, total)
	for i := 0; i < n; i++ {
		count[i] = int64(labelCounts[order[i]])
	}
	for i := n; i < total; i++ {
		count[i] = infinity
	}

	left := make([]int32, n-1)
	right := make([]int32, n-1)
	pos1, pos2 := n-1, n
	takeMin := func() int32 {
		if pos1 >= 0 && count[pos1] < count[pos2] {
			i := pos1
			pos1--
			return int32(i)
		}
		i := pos2
		pos2++
		return int32(i)
	}
	for a := 0; a < n-1; a++ {
		min1 := takeMin()
		min2 := takeMin()
		node := n + a
		count[node] = count[min1] + count[min2]
		parent[min1] = int32(node)
		parent[min2] = int32(node)
		binary[min2] = true
		left[a] = min1
		right[a] = min2
	}

	l.left, l.right = left, right
	l.root = int32(total - 1)
	l.leafOrder = make([]int32, n)
	l.paths = make([][]int32, n)
	l.codes = make([][]bool, n)
	for i := 0; i < n; i++ {
		l.leafOrder[i] = int32(order[i])
		var path []int32
		var code []bool
		node := int32(i)
		for node != l.root {
			p := parent[node]
			path = append(path, p-int32(n))
			code = append(code, binary[node])
			node = p
		}
		for a, b := 0, len(path)-1; a < b; a, b = a+1, b-1 {
			path[a], path[b] = path[b], path[a]
			code[a], code[b] = code[b], code[a]
		}
		l.paths[order[i]] = path
		l.codes[order[i]] = code
	}
}

func int32Slice(xs []int) []int32 {
	out := make([]int32, len(xs))
	for i, x := range xs {
		out[i] = int32(x)
	}
	return out
}

func (l *hsLoss) forward(targets []int32, targetIndex int, state *State, lr float32, backprop bool) float32 {
	target := targets[targetIndex]
	path := l.paths[target]
	code := l.codes[target]
	var loss float32
	for i, row := range path {
		score := l.tables.Sigmoid(l.wo.DotRow(state.hidden, int(row)))
		label := float32(0)
		if code[i] {
			label = 1
		}
		if backprop {
			alpha := lr * (label - score)
			l.wo.AddRowToVectorScaled(state.grad, int(row), alpha)
			l.wo.AddVectorToRow(state.hidden, int(row), alpha)
		}
		if code[i] {
			loss += -l.tables.Log(score)
		} else {
			loss += -l.tables.Log(1 - score)
		}
	}
	return loss
}

// computeOutput walks the whole tree once, filling every leaf's
// cumulative path probability into state.output.
func (l *hsLoss) computeOutput(state *State) {
	n := len(l.leafOrder)
	if n == 0 {
		return
	}
	type frame struct {
		node  int32
		score float32
	}
	stack := []frame{{l.root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(f.node) < n {
			state.output.Set(int(l.leafOrder[f.node]), expf32(f.score))
			continue
		}
		row := f.node - int32(n)
		s := l.tables.Sigmoid(l.wo.DotRow(state.hidden, int(row)))
		stack = append(stack,
			frame{l.left[row], f.score + l.tables.Log(1 - s)},
			frame{l.right[row], f.score + l.tables.Log(s)})
	}
}

// predict is a best-first traversal of the tree keyed by cumulative
// log-score: a node's priority is the log-probability accumulated on
// the path so far, so the highest-scoring leaves are reached first.
func (l *hsLoss) predict(k int, threshold float32, heap *Heap, state *State) {
	n := len(l.leafOrder)
	if n == 0 {
		return
	}
	pq := &hsPQ{{node: l.root, score: 0}}
	for len(*pq) > 0 {
		item := pq.pop()
		if int(item.node) < n {
			if p := expf32(item.score); p >= threshold {
				heap.Push(Prediction{Score: p, Label: l.leafOrder[item.node]})
			}
			continue
		}
		row := item.node - int32(n)
		s := l.tables.Sigmoid(l.wo.DotRow(state.hidden, int(row)))
		pq.push(hsHeapItem{node: l.left[row], score: item.score + l.tables.Log(1 - s)})
		pq.push(hsHeapItem{node: l.right[row], score: item.score + l.tables.Log(s)})
	}
}

type hsHeapItem struct {
	node  int32
	score float32
}

// hsPQ is a small max-heap on score, used only by predict's traversal.
type hsPQ []hsHeapItem

func (h *hsPQ) push(x hsHeapItem) {
	*h = append(*h, x)
	i := len(*h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if (*h)[parent].score >= (*h)[i].score {
			break
		}
		(*h)[parent], (*h)[i] = (*h)[i], (*h)[parent]
		i = parent
	}
}

func (h *hsPQ) pop() hsHeapItem {
	old := *h
	top := old[0]
	n := len(old)
	old[0] = old[n-1]
	*h = old[:n-1]
	h.siftDown(0)
	return top
}

func (h *hsPQ) siftDown(i int) {
	n := len(*h)
	for {
		l, r := 2*i+1, 2*i+2
		largest := i
		if l < n && (*h)[l].score > (*h)[largest].score {
			largest = l
		}
		if r < n && (*h)[r].score > (*h)[largest].score {
			largest = r
		}
		if largest == i {
			return
		}
		(*h)[i], (*h)[largest] = (*h)[largest], (*h)[i]
		i = largest
	}
}
