package monitoring

import "time"

// CallStore is a bounded, insertion-ordered buffer of recent call records.
// Appends beyond the capacity evict the oldest records. The store itself is
// not synchronized; the Monitor serializes all access (one call event is an
// atomic append+aggregate+check unit relative to other events).
type CallStore struct {
	calls    []*CallRecord
	capacity int
}

// NewCallStore creates a call store with the given capacity.
func NewCallStore(capacity int) *CallStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &CallStore{
		calls:    make([]*CallRecord, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting oldest-first above capacity.
func (s *CallStore) Append(record *CallRecord) {
	s.calls = append(s.calls, record)
	if len(s.calls) > s.capacity {
		overflow := len(s.calls) - s.capacity
		s.calls = append(s.calls[:0], s.calls[overflow:]...)
	}
}

// Len returns the number of stored records.
func (s *CallStore) Len() int {
	return len(s.calls)
}

// Capacity returns the store's configured cap.
func (s *CallStore) Capacity() int {
	return s.capacity
}

// Recent returns the last n records, most-recent-first.
func (s *CallStore) Recent(n int) []*CallRecord {
	if n <= 0 || len(s.calls) == 0 {
		return nil
	}
	if n > len(s.calls) {
		n = len(s.calls)
	}
	out := make([]*CallRecord, n)
	for i := 0; i < n; i++ {
		out[i] = s.calls[len(s.calls)-1-i]
	}
	return out
}

// Filter returns all records matching the predicate, in insertion order.
// Linear scans are an accepted trade-off at the bounded capacity.
func (s *CallStore) Filter(pred func(*CallRecord) bool) []*CallRecord {
	var out []*CallRecord
	for _, c := range s.calls {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// ForKey returns all records for one method:endpoint key.
func (s *CallStore) ForKey(key string) []*CallRecord {
	return s.Filter(func(c *CallRecord) bool { return c.Key() == key })
}

// Since returns all records with a timestamp at or after the cutoff.
func (s *CallStore) Since(cutoff time.Time) []*CallRecord {
	return s.Filter(func(c *CallRecord) bool { return !c.Timestamp.Before(cutoff) })
}

// All returns a copy of the stored records in insertion order.
func (s *CallStore) All() []*CallRecord {
	out := make([]*CallRecord, len(s.calls))
	copy(out, s.calls)
	return out
}

// Replace swaps the store contents, applying the capacity bound. Used when
// restoring a persisted snapshot.
func (s *CallStore) Replace(calls []*CallRecord) {
	if len(calls) > s.capacity {
		calls = calls[len(calls)-s.capacity:]
	}
	s.calls = append(s.calls[:0:0], calls...)
}
