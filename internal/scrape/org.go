package scrape

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/domain"
)

// OrgFetcher resolves org refs on its own browsing surface so the listing
// flow is never blocked. The surface is forked lazily from the main one on
// the first fetch, which copies the authenticated cookie set across.
type OrgFetcher struct {
	parent browse.Surface
	log    *log.Logger
	wait   time.Duration

	once sync.Once
	surf browse.Surface
	ferr error
}

func NewOrgFetcher(parent browse.Surface, logger *log.Logger, wait time.Duration) *OrgFetcher {
	if wait <= 0 {
		wait = 8 * time.Second
	}
	return &OrgFetcher{parent: parent, log: logger, wait: wait}
}

// Fetch pulls the five enrichment fields from the org's about page.
func (f *OrgFetcher) Fetch(ctx context.Context, orgRef string) (domain.OrgDetails, error) {
	f.once.Do(func() {
		f.surf, f.ferr = f.parent.Fork()
	})
	if f.ferr != nil {
		return domain.OrgDetails{}, fmt.Errorf("fork org surface: %w", f.ferr)
	}

	fctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := f.surf.Navigate(fctx, aboutURL(orgRef)); err != nil {
		return domain.OrgDetails{}, err
	}
	if err := f.surf.WaitFor(fctx, orgReadySelector, f.wait); err != nil {
		return domain.OrgDetails{}, err
	}

	els := f.surf.Select("html")
	if len(els) == 0 {
		return domain.OrgDetails{}, fmt.Errorf("org page is empty")
	}
	doc := els[0]

	d := domain.OrgDetails{
		Website:       orgWebsiteChain.Extract(doc),
		Description:   orgDescriptionChain.Extract(doc),
		Address:       orgAddressChain.Extract(doc),
		EmployeeCount: orgEmployeesChain.Extract(doc),
		Industries:    orgIndustriesChain.Extract(doc),
	}
	f.log.Printf("[enrich] fetched org=%q website=%q employees=%q", orgRef, d.Website, d.EmployeeCount)
	return d, nil
}

// Close releases the worker surface, if one was ever forked.
func (f *OrgFetcher) Close() error {
	if f.surf == nil {
		return nil
	}
	return f.surf.Close()
}

func aboutURL(orgRef string) string {
	if strings.HasSuffix(orgRef, "/about") {
		return orgRef
	}
	return strings.TrimRight(orgRef, "/") + "/about"
}
