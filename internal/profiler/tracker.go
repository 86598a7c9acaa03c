package profiler

// Tracker deduplicates assets by identity. Two pointers to equal values are
// distinct assets; the same pointer seen twice is one asset. Items are kept
// in first-seen order.
type Tracker[T any] struct {
	index map[*T]int
	order []*T
}

// NewTracker returns an empty tracker.
func NewTracker[T any]() *Tracker[T] {
	return &Tracker[T]{index: make(map[*T]int)}
}

// Add records a and reports whether it was seen for the first time.
// A nil reference is ignored and reports false.
func (t *Tracker[T]) Add(a *T) bool {
	if a == nil {
		return false
	}
	if _, ok := t.index[a]; ok {
		return false
	}
	t.index[a] = len(t.order)
	t.order = append(t.order, a)
	return true
}

// Contains reports whether a has been recorded.
func (t *Tracker[T]) Contains(a *T) bool {
	_, ok := t.index[a]
	return ok
}

// Items returns the distinct assets in first-seen order. The slice must not
// be modified.
func (t *Tracker[T]) Items() []*T { return t.order }

// Len returns the number of distinct assets.
func (t *Tracker[T]) Len() int { return len(t.order) }
