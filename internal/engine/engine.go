package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"jobscout-engine/internal/auth"
	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/enrich"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/search"
	"jobscout-engine/internal/session"
)

// ErrClosed is returned when a closed engine is asked to search again.
var ErrClosed = errors.New("engine is closed")

// Options for one engine instance. Username and password are required and
// validated by config before the engine is built.
type Options struct {
	Username string
	Password string

	SearchBaseURL string
	Settle        time.Duration
	DetailWait    time.Duration
	ChallengeWait time.Duration
	Logger        *log.Logger
}

func (o Options) withDefaults() Options {
	if o.SearchBaseURL == "" {
		o.SearchBaseURL = "https://www.linkedin.com/jobs/search/?"
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Engine runs one authenticated session: ensure login, paginate listings,
// drain org enrichment, merge, return. One search at a time; a closed engine
// is done for good, build a new one for a fresh session.
type Engine struct {
	surf  browse.Surface
	auth  *auth.Machine
	queue *enrich.Queue
	orgs  *scrape.OrgFetcher
	log   *log.Logger
	opts  Options

	// OnJob, when set, observes each record as the paginator emits it.
	OnJob func(domain.JobRecord)

	mu     sync.Mutex
	closed bool
}

// New wires the engine onto surf. codes may be nil when no inbox channel is
// configured; challenges then rely on the manual wait.
func New(surf browse.Surface, store *session.Store, codes auth.CodeProvider, opts Options) *Engine {
	opts = opts.withDefaults()
	orgs := scrape.NewOrgFetcher(surf, opts.Logger, opts.DetailWait)
	return &Engine{
		surf: surf,
		auth: auth.NewMachine(surf, store, codes, opts.Logger, auth.Options{
			Username:      opts.Username,
			Password:      opts.Password,
			Settle:        opts.Settle,
			ChallengeWait: opts.ChallengeWait,
		}),
		queue: enrich.NewQueue(orgs.Fetch, opts.Logger),
		orgs:  orgs,
		log:   opts.Logger,
		opts:  opts,
	}
}

// Search runs one full acquisition pass. It fails only for authentication
// problems; extraction and enrichment troubles degrade to partial data.
func (e *Engine) Search(ctx context.Context, filters search.Filters, maxJobs int) ([]domain.JobRecord, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.mu.Unlock()

	if err := e.auth.Ensure(ctx); err != nil {
		return nil, err
	}

	query := search.BuildQuery(filters)
	searchURL := e.opts.SearchBaseURL + query
	e.log.Printf("[engine] searching max=%d url=%s", maxJobs, searchURL)

	paginator := scrape.NewPaginator(e.surf, e.queue, e.log, e.opts.Settle, e.opts.DetailWait)
	paginator.OnRecord = e.OnJob

	records, err := paginator.Run(ctx, searchURL, maxJobs)
	if err != nil {
		// Not fatal by contract: whatever was collected still goes out.
		e.log.Printf("[engine] pagination ended early: %v", err)
	}

	if err := e.queue.AwaitDrain(ctx); err != nil {
		return records, fmt.Errorf("await enrichment: %w", err)
	}
	e.merge(records)

	e.log.Printf("[engine] search done jobs=%d orgs=%d", len(records), e.queue.CacheSize())
	return records, nil
}

// merge copies cached org details into every record that references them.
// Records without an org ref, or whose ref was never resolved, are untouched.
func (e *Engine) merge(records []domain.JobRecord) {
	for i := range records {
		r := &records[i]
		if r.OrgRef == "" {
			continue
		}
		d, ok := e.queue.Cached(r.OrgRef)
		if !ok {
			continue
		}
		r.OrgWebsite = d.Website
		r.OrgDescription = d.Description
		r.OrgAddress = d.Address
		r.OrgEmployeeCount = d.EmployeeCount
		r.OrgIndustries = d.Industries
	}
}

// Close tears down both browsing surfaces. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if err := e.orgs.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.surf.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
