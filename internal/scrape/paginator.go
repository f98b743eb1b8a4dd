package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/enrich"
)

const defaultPageSize = 25

// Paginator walks result pages and turns job cards into records. Everything
// it extracts is best-effort: one broken card never sinks the page, one
// unrecognizable page just ends the run with what we have.
type Paginator struct {
	surf  browse.Surface
	queue *enrich.Queue
	log   *log.Logger

	pageSize   int
	settle     time.Duration
	detailWait time.Duration

	// OnRecord, when set, is called for every extracted record.
	OnRecord func(domain.JobRecord)
}

func NewPaginator(surf browse.Surface, queue *enrich.Queue, logger *log.Logger, settle, detailWait time.Duration) *Paginator {
	if settle <= 0 {
		settle = 2 * time.Second
	}
	if detailWait <= 0 {
		detailWait = 8 * time.Second
	}
	return &Paginator{
		surf:       surf,
		queue:      queue,
		log:        logger,
		pageSize:   defaultPageSize,
		settle:     settle,
		detailWait: detailWait,
	}
}

// Run navigates to searchURL and accumulates up to maxCount records. It
// visits at most ceil(maxCount/pageSize) pages.
func (p *Paginator) Run(ctx context.Context, searchURL string, maxCount int) ([]domain.JobRecord, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	if err := p.surf.Navigate(ctx, searchURL); err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}

	maxPages := (maxCount + p.pageSize - 1) / p.pageSize
	var records []domain.JobRecord

	for page := 0; page < maxPages; page++ {
		pageURL := p.surf.Location()

		cards, strategy := p.findCards()
		if len(cards) == 0 {
			// End of results, or a layout we don't recognize. Not an error.
			p.log.Printf("[paginate] page=%d no job cards matched, stopping", page+1)
			break
		}
		p.log.Printf("[paginate] page=%d cards=%d strategy=%q", page+1, len(cards), strategy)

		for i, card := range cards {
			if len(records) >= maxCount {
				break
			}
			rec, err := p.extractRecord(ctx, card, pageURL)
			if err != nil {
				p.log.Printf("[paginate] page=%d card=%d skipped: %v", page+1, i, err)
				continue
			}
			records = append(records, rec)
			if p.OnRecord != nil {
				p.OnRecord(rec)
			}
		}

		if len(records) >= maxCount {
			break
		}
		if !p.nextPage(ctx, pageURL) {
			break
		}
	}

	return records, nil
}

// findCards tries each container strategy in order and uses the first one
// with at least one match. Strategies are never mixed within a page.
func (p *Paginator) findCards() ([]browse.Element, string) {
	for _, sel := range containerStrategies {
		if els := p.surf.Select(sel); len(els) > 0 {
			return els, sel
		}
	}
	return nil, ""
}

func (p *Paginator) extractRecord(ctx context.Context, card browse.Element, pageURL string) (domain.JobRecord, error) {
	rec := domain.JobRecord{
		JobID:    normalizeJobID(jobIDChain.Extract(card)),
		Title:    titleChain.Extract(card),
		OrgName:  orgNameChain.Extract(card),
		Location: locationChain.Extract(card),
		Link:     absURL(pageURL, linkChain.Extract(card)),
	}
	if rec.Title == "" && rec.Link == "" {
		return rec, fmt.Errorf("card has neither title nor link")
	}
	rec.ApplyLink = rec.Link

	p.extractDetail(ctx, card, &rec)
	return rec, nil
}

// extractDetail opens the card's detail pane and fills the richer fields.
// Every failure in here degrades to empty fields; the stub record stands.
func (p *Paginator) extractDetail(ctx context.Context, card browse.Element, rec *domain.JobRecord) {
	if err := card.Click(ctx); err != nil {
		p.log.Printf("[paginate] detail open failed job=%q: %v", rec.JobID, err)
		return
	}
	if err := p.surf.WaitFor(ctx, detailReadySelector, p.detailWait); err != nil {
		p.log.Printf("[paginate] detail never settled job=%q: %v", rec.JobID, err)
		return
	}

	doc := p.docElement()
	if doc == nil {
		return
	}

	rec.Summary = descriptionChain.Extract(doc)
	rec.PostedAt = postedAtChain.Extract(doc)
	if ref := orgRefChain.Extract(doc); ref != "" {
		rec.OrgRef = normalizeOrgRef(absURL(p.surf.Location(), ref))
		// Fire-and-forget: enrichment runs behind the scrape.
		p.queue.Enqueue(ctx, rec.OrgRef)
	}

	p.resolveApplyLink(ctx, doc, rec)
}

// resolveApplyLink inspects the apply control's label. An on-platform flow
// keeps the canonical link; an offsite one is worth capturing, and if the
// capture fails the canonical link stays.
func (p *Paginator) resolveApplyLink(ctx context.Context, doc browse.Element, rec *domain.JobRecord) {
	for _, sel := range applyButtonSelectors {
		label := doc.Text(sel)
		if label == "" {
			continue
		}
		if strings.Contains(strings.ToLower(label), "easy apply") {
			return // in-platform flow, canonical link is the apply link
		}
		dest, err := p.surf.CaptureNavigation(ctx, sel)
		if err != nil {
			p.log.Printf("[paginate] apply capture failed job=%q: %v", rec.JobID, err)
			return
		}
		if dest != "" && dest != rec.Link {
			rec.ApplyLink = dest
		}
		return
	}
}

// nextPage returns to the results page and advances via an enabled next-page
// control. No enabled control means the results are exhausted.
func (p *Paginator) nextPage(ctx context.Context, pageURL string) bool {
	if p.surf.Location() != pageURL {
		if err := p.surf.Navigate(ctx, pageURL); err != nil {
			p.log.Printf("[paginate] return to results failed: %v", err)
			return false
		}
	}

	for _, sel := range nextPageSelectors {
		els := p.surf.Select(sel)
		if len(els) == 0 {
			continue
		}
		disabled := len(p.surf.Select(sel+"[disabled]")) > 0 ||
			strings.Contains(els[0].Attr("", "class"), "disabled")
		if disabled {
			return false // last page
		}
		if err := p.surf.Click(ctx, sel); err != nil {
			p.log.Printf("[paginate] next page click failed: %v", err)
			return false
		}
		p.sleep(ctx, p.settle)
		return true
	}
	return false
}

func (p *Paginator) docElement() browse.Element {
	if els := p.surf.Select("html"); len(els) > 0 {
		return els[0]
	}
	return nil
}

func (p *Paginator) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func absURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

// normalizeOrgRef canonicalizes an org link so it makes a stable cache key:
// no query string, no trailing slash.
func normalizeOrgRef(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return strings.TrimRight(ref, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}
