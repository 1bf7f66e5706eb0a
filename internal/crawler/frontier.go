package crawler

import "sync"

// frontierItem is one scheduled fetch.
type frontierItem struct {
	url   string
	depth int
}

// frontier is the crawl's only synchronization point: a FIFO queue of
// canonical URLs plus the sets that guarantee each URL is scheduled and
// recorded at most once.
//
// Design decision: We use a mutex and condition variable rather than
// channels because:
//  1. Workers both consume from and produce into the queue, so a
//     channel's fixed capacity would deadlock on deep pages
//  2. Termination is "queue empty AND no fetch in flight", which needs
//     the inflight counter under the same lock as the queue
//  3. The queued/visited sets must be checked atomically with the push
type frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// queue holds scheduled items in breadth-first (FIFO) order.
	queue []frontierItem

	// queued is every URL ever scheduled, so a URL is enqueued at most
	// once regardless of how many pages link to it.
	queued map[string]bool

	// visited is every URL claimed for recording, including redirect
	// targets that were never scheduled directly.
	visited map[string]bool

	// inflight counts items handed to workers and not yet finished.
	inflight int

	// scheduled counts every accepted enqueue, capped at limit.
	scheduled int

	// limit caps the total number of scheduled fetches. Zero means
	// unlimited.
	limit int

	// closed stops all further scheduling and wakes blocked workers.
	closed bool
}

// newFrontier creates a frontier with the given total-fetch limit.
func newFrontier(limit int) *frontier {
	f := &frontier{
		queued:  make(map[string]bool),
		visited: make(map[string]bool),
		limit:   limit,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// enqueue schedules a canonical URL at the given depth. It returns false
// when the URL was already scheduled, the frontier is closed, or the
// fetch limit is reached.
func (f *frontier) enqueue(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.queued[url] {
		return false
	}
	if f.limit > 0 && f.scheduled >= f.limit {
		return false
	}

	f.queued[url] = true
	f.scheduled++
	f.queue = append(f.queue, frontierItem{url: url, depth: depth})
	f.cond.Signal()
	return true
}

// next blocks until an item is available or the crawl is finished.
// The second return value is false when no more items will ever arrive:
// the frontier is closed, or the queue is empty with nothing in flight.
func (f *frontier) next() (frontierItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return frontierItem{}, false
		}
		if len(f.queue) > 0 {
			item := f.queue[0]
			f.queue = f.queue[1:]
			f.inflight++
			return item, true
		}
		if f.inflight == 0 {
			// Nothing queued and nobody working: the crawl is done.
			f.cond.Broadcast()
			return frontierItem{}, false
		}
		f.cond.Wait()
	}
}

// done marks one in-flight item as finished. Workers must call it
// exactly once per successful next.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	// Waking everyone lets idle workers re-check the termination
	// condition, not just grab new work.
	f.cond.Broadcast()
}

// markVisited atomically claims a canonical URL for recording. It
// returns false when the URL was already claimed, which happens when a
// redirect lands on a page another worker has recorded.
func (f *frontier) markVisited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[url] {
		return false
	}
	f.visited[url] = true
	return true
}

// close stops scheduling and wakes every blocked worker. Items already
// handed out finish normally; queued items are discarded.
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.queue = nil
	f.cond.Broadcast()
}
