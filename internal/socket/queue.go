package socket

import "sync"

// actionQueue is an unbounded FIFO of pending outbound packets. The
// sink task of a socket is the sole consumer; any number of producers
// (the stream task replying to PING, the heartbeat task, the host
// calling send_message) may push onto it concurrently.
type actionQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Action
	closed bool
}

func newActionQueue() *actionQueue {
	q := &actionQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends an action. It never blocks: that is what "unbounded"
// means here.
func (q *actionQueue) push(a Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, a)
	q.cond.Signal()
}

// pop blocks until an action is available or the queue is closed. ok
// is false only once the queue is closed and drained.
func (q *actionQueue) pop() (a Action, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Action{}, false
	}
	a, q.items = q.items[0], q.items[1:]
	return a, true
}

// close wakes any blocked pop and causes every subsequent pop to
// report ok=false once the backlog is drained. Termination does not
// wait for the sink to drain: any action still queued at close time is
// dropped rather than flushed.
func (q *actionQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
