package scrape

import (
	"regexp"
	"strings"

	"jobscout-engine/internal/browse"
)

// The platform serves several layouts depending on auth state and rollout
// bucket. Every lookup below is an ordered fallback chain: first match wins,
// missing everything degrades to "".

// containerStrategies locate job cards on a results page. Strategies are
// never mixed within one page: the first one that matches anything is used.
var containerStrategies = []string{
	"ul.scaffold-layout__list-container > li.jobs-search-results__list-item",
	"ul.jobs-search__results-list > li",
	"div.job-search-card",
	"div.base-card",
}

var (
	jobIDChain = browse.Chain{
		browse.OwnAttr("data-entity-urn"),
		browse.OwnAttr("data-job-id"),
		browse.SelAttr("a.base-card__full-link", "href"),
	}
	titleChain = browse.Chain{
		browse.Sel("h3.base-search-card__title"),
		browse.Sel("a.job-card-list__title"),
		browse.Sel("h3"),
	}
	orgNameChain = browse.Chain{
		browse.Sel("h4.base-search-card__subtitle"),
		browse.Sel(".job-card-container__primary-description"),
		browse.Sel("a.hidden-nested-link"),
	}
	locationChain = browse.Chain{
		browse.Sel("span.job-search-card__location"),
		browse.Sel(".job-card-container__metadata-item"),
	}
	linkChain = browse.Chain{
		browse.SelAttr("a.base-card__full-link", "href"),
		browse.SelAttr("a.job-card-list__title", "href"),
		browse.SelAttr("a", "href"),
	}
)

// Detail pane, evaluated against the whole document after a card click.
var (
	detailReadySelector = "div.show-more-less-html__markup, div.jobs-description__content, div.description__text"

	descriptionChain = browse.Chain{
		browse.Sel("div.show-more-less-html__markup"),
		browse.Sel("div.jobs-description__content"),
		browse.Sel("div.description__text"),
	}
	postedAtChain = browse.Chain{
		browse.Sel("span.posted-time-ago__text"),
		browse.Sel(".jobs-unified-top-card__posted-date"),
		browse.Sel("time"),
	}
	orgRefChain = browse.Chain{
		browse.SelAttr("a.topcard__org-name-link", "href"),
		browse.SelAttr(".job-details-jobs-unified-top-card__company-name a", "href"),
		browse.SelAttr("a[data-tracking-control-name='public_jobs_topcard-org-name']", "href"),
	}
)

// applyButtonSelectors find the apply control; its label decides whether the
// flow stays on-platform ("Easy Apply") or leaves to an external tracker.
var applyButtonSelectors = []string{
	"button.jobs-apply-button",
	"a[data-tracking-control-name='public_jobs_apply-link-offsite']",
	"a.top-card-layout__cta--primary",
}

var nextPageSelectors = []string{
	"button[aria-label='View next page']",
	"button[aria-label='Next']",
	"a[data-tracking-control-name='pagination-next']",
}

// Org "about" page, guest and member layouts.
var (
	orgReadySelector = "dl, section.core-section-container, div.org-grid__core-rail"

	orgWebsiteChain = browse.Chain{
		browse.SelAttr("div[data-test-id='about-us__website'] dd a", "href"),
		browse.SelAttr("a[data-tracking-control-name='about_website']", "href"),
		browse.Sel("dd.org-about-company-module__company-page-url"),
	}
	orgDescriptionChain = browse.Chain{
		browse.Sel("p[data-test-id='about-us__description']"),
		browse.Sel("section.core-section-container p.break-words"),
		browse.Sel("div.org-about-module p"),
	}
	orgAddressChain = browse.Chain{
		browse.Sel("div[data-test-id='about-us__headquarters'] dd"),
		browse.Sel(".org-top-card-summary__headquarter"),
		browse.Sel("div.org-location-card p"),
	}
	orgEmployeesChain = browse.Chain{
		browse.Sel("div[data-test-id='about-us__size'] dd"),
		browse.Sel("dd.org-about-company-module__company-staff-count-range"),
	}
	orgIndustriesChain = browse.Chain{
		browse.Sel("div[data-test-id='about-us__industry'] dd"),
		browse.Sel("dd.org-about-company-module__industry"),
	}
)

var reJobID = regexp.MustCompile(`/jobs/view/(\d+)`)

// normalizeJobID turns whatever the id chain produced (entity URN, raw id,
// or a listing href) into the bare numeric posting id.
func normalizeJobID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if i := strings.LastIndex(raw, "urn:li:jobPosting:"); i >= 0 {
		return raw[i+len("urn:li:jobPosting:"):]
	}
	if m := reJobID.FindStringSubmatch(raw); len(m) == 2 {
		return m[1]
	}
	if strings.ContainsAny(raw, "/:") {
		return ""
	}
	return raw
}
