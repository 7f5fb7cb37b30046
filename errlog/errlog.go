// Package errlog keeps a bounded, numbered record of errors for the API.
package errlog

import (
	"sync"
	"time"
)

// DefaultLimit is the number of entries kept when no limit is given
const DefaultLimit = 100

// Entry is one recorded error
type Entry struct {
	ID   uint64 `json:"id"`
	Time int64  `json:"time"`
	Text string `json:"text"`
}

// Registry stores the most recent errors in insertion order
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  uint64
	limit   int
	now     func() time.Time
}

// New creates a registry keeping at most limit entries
func New(limit int) *Registry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Registry{
		limit: limit,
		now:   time.Now,
	}
}

// Insert records err and returns its entry. A nil registry records nothing.
func (r *Registry) Insert(err error) Entry {
	if r == nil {
		return Entry{Text: err.Error()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := Entry{
		ID:   r.nextID,
		Time: r.now().Unix(),
		Text: err.Error(),
	}
	r.nextID++

	r.entries = append(r.entries, entry)
	if len(r.entries) > r.limit {
		r.entries = append(r.entries[:0:0], r.entries[len(r.entries)-r.limit:]...)
	}
	return entry
}

// Last returns the newest entry
func (r *Registry) Last() (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Get returns the entry with the given id if it is still kept
func (r *Registry) Get(id uint64) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// ids are increasing, so the offset from the oldest kept entry is the index
	if len(r.entries) == 0 || id < r.entries[0].ID {
		return Entry{}, false
	}
	off := id - r.entries[0].ID
	if off >= uint64(len(r.entries)) {
		return Entry{}, false
	}
	return r.entries[off], true
}

// Page returns the page-th slice of size entries, oldest first
func (r *Registry) Page(page, size int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// checked before multiplying so a huge page cannot overflow
	if page < 0 || size <= 0 || page > len(r.entries)/size {
		return []Entry{}
	}
	start := page * size
	if start >= len(r.entries) {
		return []Entry{}
	}
	end := start + size
	if end > len(r.entries) {
		end = len(r.entries)
	}

	out := make([]Entry, end-start)
	copy(out, r.entries[start:end])
	return out
}
