package search

import (
	"container/heap"
	"sort"

	"nations.ai/internal/sim/world"
)

type node struct {
	eu       float64
	seq      uint64
	schedule world.Schedule
	world    *world.World
	// trace holds the EU of the empty schedule followed by the EU recorded
	// when each step was added. Only the scheduler fills it.
	trace []float64
}

// nodeHeap orders by EU descending, then insertion order.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].eu != h[j].eu {
		return h[i].eu > h[j].eu
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(*node)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}

// frontier is a max-priority queue of unexpanded nodes.
type frontier struct {
	items nodeHeap
	next  uint64
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) push(n *node) {
	n.seq = f.next
	f.next++
	heap.Push(&f.items, n)
}

func (f *frontier) pop() *node {
	return heap.Pop(&f.items).(*node)
}

// trim keeps the best limit nodes and returns how many were dropped.
func (f *frontier) trim(limit int) int {
	if limit <= 0 || len(f.items) <= limit {
		return 0
	}
	sort.Slice(f.items, f.items.Less)
	dropped := len(f.items) - limit
	for i := limit; i < len(f.items); i++ {
		f.items[i] = nil
	}
	f.items = f.items[:limit]
	// A slice sorted by Less already satisfies the heap invariant.
	return dropped
}
