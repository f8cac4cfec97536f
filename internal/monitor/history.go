package monitor

// history keeps the most recent limit items.
type history[T any] struct {
	limit int
	items []T
}

func newHistory[T any](limit int) *history[T] {
	return &history[T]{limit: limit}
}

func (h *history[T]) push(items ...T) {
	h.items = append(h.items, items...)
	if h.limit > 0 && len(h.items) > h.limit {
		drop := len(h.items) - h.limit
		h.items = append(h.items[:0:0], h.items[drop:]...)
	}
}

// last returns a copy of up to n most recent items; n <= 0 returns all.
func (h *history[T]) last(n int) []T {
	start := 0
	if n > 0 && len(h.items) > n {
		start = len(h.items) - n
	}
	out := make([]T, len(h.items)-start)
	copy(out, h.items[start:])
	return out
}

func (h *history[T]) len() int {
	return len(h.items)
}

func (h *history[T]) clear() {
	h.items = nil
}
