// Package scraper implements source-specific listing page fetching.
//
// Each external site has one Strategy. A strategy knows its own seed
// requests and its own pagination cursor; it walks pages until no next page
// is found or a fetch fails, appending every successful page to the staging
// store as one raw capture. Failures stop only the current pagination
// branch — upstream sites throttle and return malformed pages routinely,
// and the next scheduled run picks up where the data left off.
package scraper

import (
	"context"
	"fmt"

	"estatehub/pipeline-service/internal/model"
)

// CaptureSink is the staging-store surface the scrapers write to.
type CaptureSink interface {
	Append(ctx context.Context, source model.Source, category, subCategory, payload string) (string, error)
}

// Strategy scrapes one external site into the staging store.
type Strategy interface {
	Source() model.Source
	Scrape(ctx context.Context) error
}

// ForSource returns the strategy registered for the given source.
func ForSource(source model.Source, sink CaptureSink) (Strategy, error) {
	switch source {
	case model.SourceOLX:
		return NewOLXScraper(sink), nil
	case model.SourceOtodom:
		return NewOtodomScraper(sink), nil
	}
	return nil, fmt.Errorf("no scraper registered for source %q", source)
}
