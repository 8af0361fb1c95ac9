package queue

// ring is an unbounded FIFO over a circular slice. It grows by doubling when
// full, so push and pop are amortized O(1). Not safe for concurrent use.
type ring struct {
	data []interface{}
	head int
	size int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{data: make([]interface{}, capacity)}
}

func (r *ring) len() int { return r.size }

func (r *ring) grow() {
	data := make([]interface{}, 2*len(r.data))
	n := copy(data, r.data[r.head:])
	copy(data[n:], r.data[:r.head])
	r.data = data
	r.head = 0
}

func (r *ring) pushBack(v interface{}) {
	if r.size == len(r.data) {
		r.grow()
	}
	r.data[(r.head+r.size)%len(r.data)] = v
	r.size++
}

func (r *ring) pushFront(v interface{}) {
	if r.size == len(r.data) {
		r.grow()
	}
	r.head = (r.head - 1 + len(r.data)) % len(r.data)
	r.data[r.head] = v
	r.size++
}

func (r *ring) front() interface{} {
	if r.size == 0 {
		return nil
	}
	return r.data[r.head]
}

func (r *ring) popFront() interface{} {
	if r.size == 0 {
		return nil
	}
	v := r.data[r.head]
	r.data[r.head] = nil
	r.head = (r.head + 1) % len(r.data)
	r.size--
	return v
}

// clear empties the ring, calling fn for each element in FIFO order.
func (r *ring) clear(fn func(interface{})) {
	for r.size > 0 {
		v := r.popFront()
		if fn != nil {
			fn(v)
		}
	}
	r.head = 0
}

// notifier is a broadcast wakeup. Waiters take the current channel under the
// owning queue's lock and block on it; every state change closes it. A
// channel is only allocated while somebody is waiting.
type notifier struct {
	ch chan struct{}
}

func (n *notifier) wait() <-chan struct{} {
	if n.ch == nil {
		n.ch = make(chan struct{})
	}
	return n.ch
}

func (n *notifier) broadcast() {
	if n.ch != nil {
		close(n.ch)
		n.ch = nil
	}
}
