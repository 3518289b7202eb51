package harvest

import "sync"

// worklist is the lazily-built partition tree, drained by a fixed worker
// pool. Ownership of each partition transfers to exactly one worker, so
// there is no shared mutable partition state.
type worklist struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []Partition
	pending int
	closed  bool
}

func newWorklist() *worklist {
	w := &worklist{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *worklist) add(p Partition) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.items = append(w.items, p)
	w.pending++
	w.cond.Signal()
}

// next blocks until a partition is available or no more work can appear.
func (w *worklist) next() (Partition, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.items) == 0 && w.pending > 0 && !w.closed {
		w.cond.Wait()
	}
	if w.closed || len(w.items) == 0 {
		return Partition{}, false
	}

	// LIFO keeps the subdivision tree depth-first and the queue small
	last := len(w.items) - 1
	item := w.items[last]
	w.items = w.items[:last]
	return item, true
}

// done marks one previously handed-out partition as fully processed.
// Children enqueued during processing were already counted by add, so
// pending only reaches zero when the whole tree is drained.
func (w *worklist) done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending--
	if w.pending == 0 {
		w.cond.Broadcast()
	}
}

func (w *worklist) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.cond.Broadcast()
}
