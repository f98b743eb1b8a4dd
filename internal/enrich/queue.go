package enrich

import (
	"context"
	"log"
	"sync"

	"jobscout-engine/internal/domain"
)

// FetchFunc pulls the org details behind one ref. Errors are absorbed by the
// queue: a failed ref is cached empty so it is never fetched twice.
type FetchFunc func(ctx context.Context, orgRef string) (domain.OrgDetails, error)

// Queue deduplicates org enrichment work behind the listing scrape. One
// background worker drains the pending set; results land in an in-memory
// cache keyed by org ref. Enqueue never blocks and never double-schedules.
type Queue struct {
	fetch FetchFunc
	log   *log.Logger

	mu      sync.Mutex
	pending []string
	queued  map[string]bool
	cache   map[string]domain.OrgDetails
	running bool
	done    chan struct{} // non-nil while the worker runs; closed on stop
}

func NewQueue(fetch FetchFunc, logger *log.Logger) *Queue {
	return &Queue{
		fetch:  fetch,
		log:    logger,
		queued: make(map[string]bool),
		cache:  make(map[string]domain.OrgDetails),
	}
}

// Enqueue adds orgRef unless it is already cached or already waiting.
// Idempotent; callers fire and forget.
func (q *Queue) Enqueue(ctx context.Context, orgRef string) {
	if orgRef == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, cached := q.cache[orgRef]; cached {
		return
	}
	if q.queued[orgRef] {
		return
	}
	q.queued[orgRef] = true
	q.pending = append(q.pending, orgRef)

	if !q.running {
		q.running = true
		q.done = make(chan struct{})
		go q.drain(ctx, q.done)
	}
}

func (q *Queue) drain(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		ref := q.pending[0]
		q.pending = q.pending[1:]
		_, cached := q.cache[ref]
		q.mu.Unlock()

		if cached {
			continue // lost a race with a duplicate enqueue
		}

		details, err := q.fetch(ctx, ref)
		if err != nil {
			q.log.Printf("[enrich] fetch failed org=%q err=%v", ref, err)
			details = domain.OrgDetails{} // cache empty so we never retry
		}

		q.mu.Lock()
		q.cache[ref] = details
		delete(q.queued, ref)
		q.mu.Unlock()
	}
}

// AwaitDrain blocks until the worker has stopped and nothing is pending.
// It waits on the worker's done channel rather than polling a flag.
func (q *Queue) AwaitDrain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if !q.running && len(q.pending) == 0 {
			q.mu.Unlock()
			return nil
		}
		done := q.done
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			// Worker stopped; loop once more in case an enqueue raced in.
		}
	}
}

// Cached returns the details for orgRef, if the worker has processed it.
func (q *Queue) Cached(orgRef string) (domain.OrgDetails, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.cache[orgRef]
	return d, ok
}

// CacheSize reports how many refs have been resolved (including failures).
func (q *Queue) CacheSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cache)
}
