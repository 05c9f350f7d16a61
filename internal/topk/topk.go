// Package topk implements bounded top-k selection over scored candidates.
package topk

import "slices"

// Item is a scored candidate. Smaller Key ranks first; equal keys rank by
// ascending Index, which makes selection independent of insertion order.
type Item struct {
	Index int32
	Key   float32
}

// before reports whether a ranks strictly ahead of b.
func before(a, b Item) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Index < b.Index
}

// Heap keeps the k best items seen so far.
// It is a max-heap on rank: the root is the worst retained item.
// It does NOT implement container/heap to avoid interface overhead.
type Heap struct {
	k     int
	items []Item
}

// New creates a heap retaining at most k items.
func New(k int) *Heap {
	return &Heap{
		k:     k,
		items: make([]Item, 0, k),
	}
}

// Len returns the number of retained items.
func (h *Heap) Len() int {
	return len(h.items)
}

// Push offers an item. When the heap is full the item replaces the current
// worst only if it ranks ahead of it.
func (h *Heap) Push(it Item) {
	if h.k <= 0 {
		return
	}
	if len(h.items) < h.k {
		h.items = append(h.items, it)
		h.siftUp(len(h.items) - 1)
		return
	}
	if before(it, h.items[0]) {
		h.items[0] = it
		h.siftDown(0)
	}
}

// Sorted returns the retained items best-first. The heap is left unchanged.
func (h *Heap) Sorted() []Item {
	out := slices.Clone(h.items)
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case before(a, b):
			return -1
		case before(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// worse reports whether item i should sit above item j in the max-heap.
func (h *Heap) worse(i, j int) bool {
	return before(h.items[j], h.items[i])
}

func (h *Heap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.worse(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		right := left + 1
		if right < n && h.worse(right, left) {
			child = right
		}
		if !h.worse(child, i) {
			break
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
