package stream

// DefaultBufferSize is the number of recent samples kept for the focused agent.
const DefaultBufferSize = 60

// Ring is a fixed-size circular buffer. Once full, each Push drops the
// oldest value. It is not safe for concurrent use; owners guard it.
type Ring[T any] struct {
	data  []T
	head  int
	count int
	size  int
}

// NewRing creates a ring holding at most size values.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Ring[T]{
		data: make([]T, size),
		size: size,
	}
}

// Push appends v. When the ring was full, the value it displaced is
// returned with ok set.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if r.count == r.size {
		evicted, ok = r.data[r.head], true
	}
	r.data[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	return evicted, ok
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the ring's capacity.
func (r *Ring[T]) Cap() int { return r.size }

// Last returns the last n values in chronological order (oldest first).
// Returns fewer values if not enough are stored.
func (r *Ring[T]) Last(n int) []T {
	if n <= 0 || r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	out := make([]T, n)
	// head is the next write position, so the newest value is at head-1.
	start := (r.head - n + r.size) % r.size
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%r.size]
	}
	return out
}

// Items returns every stored value, oldest first.
func (r *Ring[T]) Items() []T {
	return r.Last(r.count)
}

// Newest returns the most recently pushed value.
func (r *Ring[T]) Newest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.data[(r.head-1+r.size)%r.size], true
}

// Reset empties the ring without reallocating.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head = 0
	r.count = 0
}
