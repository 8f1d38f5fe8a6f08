package eventcore

import "sync"

// fifoQueue is the in-process buffer of validated envelopes awaiting
// dispatch. Order is strict FIFO; the queue is owned by a single Ingestor.
type fifoQueue struct {
	mu    sync.Mutex
	items []*Envelope
}

// push appends an envelope and returns the resulting queue length.
func (q *fifoQueue) push(e *Envelope) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, e)
	return len(q.items)
}

// pop removes and returns the head of the queue.
func (q *fifoQueue) pop() (*Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return head, true
}

// len returns the current number of queued envelopes.
func (q *fifoQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
