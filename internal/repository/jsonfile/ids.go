package jsonfile

import "github.com/dom/doctree/internal/domain"

// Allocator hands out strictly increasing ids. It carries no lock: the
// repository that owns it calls Next only while holding its own mutex, so an
// id is drawn and committed inside one critical section.
type Allocator struct {
	next domain.ID
}

// NewAllocator seeds the counter at max(ids)+1, or 1 when ids is empty
// because 0 is reserved.
func NewAllocator(ids []domain.ID) *Allocator {
	next := domain.ID(1)
	for _, id := range ids {
		if id+1 > next {
			next = id + 1
		}
	}
	return &Allocator{next: next}
}

// Next returns the current counter value and advances it.
func (a *Allocator) Next() domain.ID {
	id := a.next
	a.next++
	return id
}

// Peek returns the value the next call to Next will return.
func (a *Allocator) Peek() domain.ID {
	return a.next
}
