// Package pipeline orchestrates the scrape and parse runs for one source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"estatehub/pipeline-service/internal/ingest"
	"estatehub/pipeline-service/internal/model"
	"estatehub/pipeline-service/internal/parser"
	"estatehub/pipeline-service/internal/scraper"
	"estatehub/pipeline-service/internal/staging"
)

// CaptureStore is the staging-store surface the parse run reads from.
type CaptureStore interface {
	scraper.CaptureSink
	AllUnparsed(ctx context.Context, source model.Source) ([]staging.RawCapture, error)
	MarkParsed(ctx context.Context, id string) error
}

// Ingestor persists one offer candidate.
type Ingestor interface {
	Ingest(ctx context.Context, offer model.ParsedOffer) (*model.Offer, error)
}

// Runner wires the staging store, the per-source strategies and the
// ingestion service into the two trigger operations: ScrapeRun and
// ParseRun. Both are idempotent and independently retryable — an external
// scheduler (or the HTTP admin surface) invokes them at will.
type Runner struct {
	captures CaptureStore
	ingestor Ingestor
}

// NewRunner returns a configured Runner.
func NewRunner(captures CaptureStore, ingestor Ingestor) *Runner {
	return &Runner{captures: captures, ingestor: ingestor}
}

// ScrapeRun fetches the source's listing pages into the staging store.
func (r *Runner) ScrapeRun(ctx context.Context, source model.Source) error {
	strategy, err := scraper.ForSource(source, r.captures)
	if err != nil {
		return err
	}
	return strategy.Scrape(ctx)
}

// ParseRun processes every unparsed capture of the source: parse the
// payload, ingest each candidate, then mark the capture parsed. The mark
// happens only after all derived offers are durably upserted, so a crash
// mid-run re-processes the capture on the next run — duplicates are
// rejected by URL, not re-created.
func (r *Runner) ParseRun(ctx context.Context, source model.Source) error {
	strategy, err := parser.ForSource(source)
	if err != nil {
		return err
	}

	captures, err := r.captures.AllUnparsed(ctx, source)
	if err != nil {
		return fmt.Errorf("load unparsed captures: %w", err)
	}

	log.Printf("[pipeline] Parse run for %s — %d unparsed capture(s)", source, len(captures))

	var totalIngested, totalDuplicate, totalFailed int
	for _, capture := range captures {
		ingested, duplicates, failed, err := r.parseCapture(ctx, strategy, capture)
		if err != nil {
			log.Printf("[pipeline] Capture %s failed: %v — continuing", capture.ID, err)
			continue
		}
		totalIngested += ingested
		totalDuplicate += duplicates
		totalFailed += failed
	}

	log.Printf("[pipeline] Parse run for %s done — ingested=%d duplicates=%d failed=%d",
		source, totalIngested, totalDuplicate, totalFailed)
	return nil
}

// parseCapture ingests every candidate derived from one capture and
// advances it to PARSED. Duplicate URLs are counted, not treated as
// failures — they signal "already known".
func (r *Runner) parseCapture(
	ctx context.Context,
	strategy parser.Strategy,
	capture staging.RawCapture,
) (ingested, duplicates, failed int, err error) {
	offers, err := strategy.Parse(capture.Payload, capture.Category, capture.SubCategory)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse: %w", err)
	}

	for _, offer := range offers {
		_, err := r.ingestor.Ingest(ctx, offer)
		switch {
		case err == nil:
			ingested++
		case errors.Is(err, ingest.ErrOfferExists):
			duplicates++
		default:
			// A store failure here leaves the capture unparsed; the next
			// run retries and the URL gate keeps it idempotent.
			failed++
			log.Printf("[pipeline] Ingest %s failed: %v", offer.DetailsURL, err)
		}
	}

	if failed > 0 {
		return ingested, duplicates, failed, fmt.Errorf("%d of %d offers failed to ingest", failed, len(offers))
	}

	if err := r.captures.MarkParsed(ctx, capture.ID); err != nil {
		return ingested, duplicates, failed, fmt.Errorf("mark parsed: %w", err)
	}
	return ingested, duplicates, failed, nil
}
