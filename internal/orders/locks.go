package orders

import "sync"

// orderLocks hands out one mutex per order id so the webhook's
// read-check-dispatch-write sequence cannot interleave for the same order.
type orderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *orderLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
