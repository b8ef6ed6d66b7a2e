package state

// -----------------------------------------------------------------------------
// RollingHistory is a fixed-size circular buffer. Appending at capacity
// evicts the oldest entry. Not safe for concurrent use on its own; the
// owning AppState guards it.
// -----------------------------------------------------------------------------

type RollingHistory[T any] struct {
	data     []T
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRollingHistory creates a new buffer with fixed capacity
func NewRollingHistory[T any](capacity int) *RollingHistory[T] {
	if capacity <= 0 {
		capacity = 1
	}

	return &RollingHistory[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds an entry, evicting the oldest when full
func (h *RollingHistory[T]) Append(item T) {
	h.data[h.index] = item
	h.index = (h.index + 1) % h.capacity

	// Size never exceeds capacity
	if h.size < h.capacity {
		h.size++
	}
}

// -----------------------------------------------------------------------------

// Items returns all entries in insertion order (oldest to newest)
func (h *RollingHistory[T]) Items() []T {
	if h.size == 0 {
		return []T{}
	}

	result := make([]T, h.size)

	// Oldest element position depends on whether we have wrapped
	startIdx := 0
	if h.size == h.capacity {
		startIdx = h.index
	}

	for i := 0; i < h.size; i++ {
		result[i] = h.data[(startIdx+i)%h.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Last returns the newest entry, if any
func (h *RollingHistory[T]) Last() (T, bool) {
	var zero T
	if h.size == 0 {
		return zero, false
	}
	return h.data[(h.index-1+h.capacity)%h.capacity], true
}

// -----------------------------------------------------------------------------

// Len returns current number of elements
func (h *RollingHistory[T]) Len() int {
	return h.size
}

// -----------------------------------------------------------------------------

// Cap returns buffer capacity (fixed)
func (h *RollingHistory[T]) Cap() int {
	return h.capacity
}
