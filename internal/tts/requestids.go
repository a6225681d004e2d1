package tts

// DefaultChainLength is how many previous request ids are sent with each
// ElevenLabs call.
const DefaultChainLength = 3

// RequestIDQueue keeps the most recent request ids, oldest first. It is
// not safe for concurrent use; each stream owns its own queue.
type RequestIDQueue struct {
	capacity int
	ids      []string
}

func NewRequestIDQueue(capacity int) *RequestIDQueue {
	if capacity <= 0 {
		capacity = DefaultChainLength
	}
	return &RequestIDQueue{capacity: capacity, ids: make([]string, 0, capacity)}
}

// Push appends id, evicting the oldest entry when full. Empty ids are ignored.
func (q *RequestIDQueue) Push(id string) {
	if id == "" {
		return
	}
	if len(q.ids) == q.capacity {
		copy(q.ids, q.ids[1:])
		q.ids = q.ids[:len(q.ids)-1]
	}
	q.ids = append(q.ids, id)
}

// Snapshot returns a copy of the queued ids.
func (q *RequestIDQueue) Snapshot() []string {
	return append([]string{}, q.ids...)
}

func (q *RequestIDQueue) Len() int { return len(q.ids) }
