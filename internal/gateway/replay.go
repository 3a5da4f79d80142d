package gateway

import "sync"

type replayEntry struct {
	seq  int64
	data []byte
}

// ReplayBuffer is a fixed-size ring of recent envelopes, ordered by sequence
// number. Safe for concurrent use.
type ReplayBuffer struct {
	mu   sync.RWMutex
	buf  []replayEntry
	next int
	full bool
}

// NewReplayBuffer creates a buffer holding the last capacity envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = defaultReplayCap
	}
	return &ReplayBuffer{buf: make([]replayEntry, capacity)}
}

// Push stores one envelope, evicting the oldest when full. The data slice is
// copied so the caller may reuse it.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	rb.mu.Lock()
	rb.buf[rb.next] = replayEntry{seq: seq, data: cp}
	rb.next++
	if rb.next == len(rb.buf) {
		rb.next = 0
		rb.full = true
	}
	rb.mu.Unlock()
}

// Since returns every buffered envelope with seq > from, oldest first.
func (rb *ReplayBuffer) Since(from int64) [][]byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n := rb.size()
	var out [][]byte
	for i := 0; i < n; i++ {
		e := rb.buf[rb.physical(i)]
		if e.seq > from {
			out = append(out, e.data)
		}
	}
	return out
}

// Len returns the number of buffered envelopes.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size()
}

func (rb *ReplayBuffer) size() int {
	if rb.full {
		return len(rb.buf)
	}
	return rb.next
}

// physical maps a logical index (0 = oldest) to a buffer slot.
func (rb *ReplayBuffer) physical(logical int) int {
	if rb.full {
		return (rb.next + logical) % len(rb.buf)
	}
	return logical
}
