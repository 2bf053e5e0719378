package common

import "strconv"

// RollingIndex keeps the most recent items of a gap-free sequence addressed by
// absolute index. It holds between size and 2*size items; when full, the
// oldest size items are dropped at once and reads below the window return a
// TooLate StoreErr.
type RollingIndex[T any] struct {
	name      string
	size      int
	lastIndex int
	items     []T
}

// NewRollingIndex creates an empty RollingIndex. name is used in errors.
func NewRollingIndex[T any](name string, size int) *RollingIndex[T] {
	if size < 1 {
		size = 1
	}
	return &RollingIndex[T]{
		name:      name,
		size:      size,
		items:     make([]T, 0, 2*size),
		lastIndex: -1,
	}
}

// LastIndex returns the index of the most recent item, or -1
func (r *RollingIndex[T]) LastIndex() int {
	return r.lastIndex
}

func (r *RollingIndex[T]) oldest() int {
	return r.lastIndex - len(r.items) + 1
}

// Since returns the items with an index strictly greater than skip.
func (r *RollingIndex[T]) Since(skip int) ([]T, error) {
	if skip >= r.lastIndex {
		return []T{}, nil
	}

	if skip+1 < r.oldest() {
		return nil, NewStoreErr(r.name, TooLate, strconv.Itoa(skip))
	}

	start := skip - r.oldest() + 1
	res := make([]T, len(r.items)-start)
	copy(res, r.items[start:])

	return res, nil
}

// Get returns the item at the given absolute index
func (r *RollingIndex[T]) Get(index int) (T, error) {
	var zero T

	if index < r.oldest() {
		return zero, NewStoreErr(r.name, TooLate, strconv.Itoa(index))
	}

	pos := index - r.oldest()
	if pos >= len(r.items) {
		return zero, NewStoreErr(r.name, KeyNotFound, strconv.Itoa(index))
	}

	return r.items[pos], nil
}

// Set appends an item at lastIndex+1 or replaces one still in the window.
func (r *RollingIndex[T]) Set(item T, index int) error {
	if index > r.lastIndex+1 {
		return NewStoreErr(r.name, SkippedIndex, strconv.Itoa(index))
	}

	if index == r.lastIndex+1 {
		if len(r.items) >= 2*r.size {
			r.roll()
		}
		r.items = append(r.items, item)
		r.lastIndex = index
		return nil
	}

	if index < r.oldest() {
		return NewStoreErr(r.name, TooLate, strconv.Itoa(index))
	}

	r.items[index-r.oldest()] = item

	return nil
}

func (r *RollingIndex[T]) roll() {
	kept := make([]T, 0, 2*r.size)
	kept = append(kept, r.items[r.size:]...)
	r.items = kept
}
