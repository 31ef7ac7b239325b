package orderbook

import "container/heap"

// priceHeap tracks the prices of one side of the book (highest on top for
// bids, lowest on top for asks). Entries go stale when their level empties;
// the book discards them lazily when they surface at the top.
type priceHeap struct {
	prices []Price
	max    bool
	member map[Price]struct{}
}

func newBidHeap() *priceHeap { return &priceHeap{max: true, member: make(map[Price]struct{})} }
func newAskHeap() *priceHeap { return &priceHeap{member: make(map[Price]struct{})} }

func (h *priceHeap) Len() int { return len(h.prices) }
func (h *priceHeap) Less(i, j int) bool {
	if h.max {
		return h.prices[i] > h.prices[j]
	}
	return h.prices[i] < h.prices[j]
}
func (h *priceHeap) Swap(i, j int) { h.prices[i], h.prices[j] = h.prices[j], h.prices[i] }

func (h *priceHeap) Push(x any) {
	h.prices = append(h.prices, x.(Price))
}

func (h *priceHeap) Pop() any {
	old := h.prices
	n := len(old)
	x := old[n-1]
	h.prices = old[0 : n-1]
	return x
}

// track registers p unless an entry (live or stale) is already present.
func (h *priceHeap) track(p Price) {
	if _, ok := h.member[p]; ok {
		return
	}
	h.member[p] = struct{}{}
	heap.Push(h, p)
}

// peek returns the top element without removing it
func (h *priceHeap) peek() (Price, bool) {
	if len(h.prices) == 0 {
		return 0, false
	}
	return h.prices[0], true
}

// discard pops the top entry.
func (h *priceHeap) discard() {
	p := heap.Pop(h).(Price)
	delete(h.member, p)
}

func (h *priceHeap) tracks(p Price) bool {
	_, ok := h.member[p]
	return ok
}
