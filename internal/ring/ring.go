// Package ring provides a fixed-capacity circular buffer. It does no
// locking; callers serialize access.
package ring

// Ring is a circular FIFO buffer of fixed capacity.
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest element
	size int // number of stored elements
}

// New returns a ring that holds up to capacity elements.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	return r.size
}

// Free returns the number of elements that can be written without
// overwriting.
func (r *Ring[T]) Free() int {
	return len(r.buf) - r.size
}

// Write appends as many elements of p as fit and returns the number
// written.
func (r *Ring[T]) Write(p []T) int {
	n := min(len(p), r.Free())
	if n == 0 {
		return 0
	}
	tail := (r.head + r.size) % len(r.buf)
	c := copy(r.buf[tail:], p[:n])
	copy(r.buf, p[c:n])
	r.size += n
	return n
}

// Read moves up to len(p) of the oldest elements into p and returns
// the number read.
func (r *Ring[T]) Read(p []T) int {
	n := min(len(p), r.size)
	if n == 0 {
		return 0
	}
	c := copy(p[:n], r.buf[r.head:])
	copy(p[c:n], r.buf)
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
	return n
}

// Reset drops all stored elements.
func (r *Ring[T]) Reset() {
	r.head, r.size = 0, 0
}
