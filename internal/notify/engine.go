// Package notify implements the saved-search matching engine and the
// pluggable delivery strategies it dispatches to.
package notify

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"estatehub/pipeline-service/internal/model"
)

// digestPageSize bounds the offers attached to one digest. The engine is a
// digest generator, not an exhaustive export.
const digestPageSize = 100

// ─── Store contract ──────────────────────────────────────────────────────────

// Store is the canonical-store surface the matching engine needs.
type Store interface {
	// ListActiveFilters returns every saved search with active=true.
	ListActiveFilters(ctx context.Context) ([]model.NotificationFilter, error)
	// SearchOffers returns up to limit offers matching the filter's set
	// criteria, newest first. Unset criteria impose no constraint.
	SearchOffers(ctx context.Context, filter model.NotificationFilter, limit int) ([]model.Offer, error)
	// CreateNotification persists a new unread notification.
	CreateNotification(ctx context.Context, userID, title, message string) (*model.Notification, error)
	// AttachOffers associates the digest's offers with the notification.
	// Called exactly once per notification, right after creation.
	AttachOffers(ctx context.Context, notificationID string, offerIDs []string) error
}

// CaptureAdvancer advances parsed staging captures to their sent stage once
// a cycle has dispatched digests built over them.
type CaptureAdvancer interface {
	MarkAllSent(ctx context.Context, source model.Source) (int64, error)
}

// ─── Engine ──────────────────────────────────────────────────────────────────

// Engine runs matching cycles: one digest Notification per active saved
// search, handed to exactly one delivery strategy. It is decoupled from the
// delivery mechanism entirely; swapping the strategy requires no engine
// change.
type Engine struct {
	store    Store
	strategy Strategy
	captures CaptureAdvancer // may be nil; then no stage advancing happens
}

// NewEngine returns a configured Engine.
func NewEngine(store Store, strategy Strategy, captures CaptureAdvancer) *Engine {
	return &Engine{store: store, strategy: strategy, captures: captures}
}

// RunMatchingCycle evaluates every active saved search against the current
// offer store. Per-filter failures are logged and skipped — each
// Notification commits independently, so a stopped or partially failed
// cycle corrupts nothing.
func (e *Engine) RunMatchingCycle(ctx context.Context) error {
	filters, err := e.store.ListActiveFilters(ctx)
	if err != nil {
		return fmt.Errorf("list active filters: %w", err)
	}

	log.Printf("[notify] Matching cycle started — %d active filter(s)", len(filters))

	var built int
	for _, filter := range filters {
		if filter.UserID == nil {
			continue // ownerless filter, nobody to notify
		}
		if err := e.matchFilter(ctx, filter); err != nil {
			slog.Warn("filter matching failed", "filterId", filter.ID, "err", err)
			continue
		}
		built++
	}

	e.advanceCaptures(ctx)

	log.Printf("[notify] Matching cycle complete — %d notification(s) built", built)
	return nil
}

// matchFilter builds, persists and dispatches one digest. A zero-match
// digest is still produced; suppressing empty results is a product call
// the engine does not make.
func (e *Engine) matchFilter(ctx context.Context, filter model.NotificationFilter) error {
	offers, err := e.store.SearchOffers(ctx, filter, digestPageSize)
	if err != nil {
		return fmt.Errorf("search offers: %w", err)
	}

	subject := "your search"
	if filter.Category != nil {
		subject = string(*filter.Category)
	}

	notification, err := e.store.CreateNotification(ctx, *filter.UserID,
		fmt.Sprintf("New offers for %s", subject),
		fmt.Sprintf("There are %d offers for %s", len(offers), subject),
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	offerIDs := make([]string, 0, len(offers))
	for _, offer := range offers {
		offerIDs = append(offerIDs, offer.ID)
	}
	if err := e.store.AttachOffers(ctx, notification.ID, offerIDs); err != nil {
		return fmt.Errorf("attach offers: %w", err)
	}
	notification.OfferIDs = offerIDs

	// Delivery is best-effort, at most once. The persisted Notification
	// stands regardless of the strategy outcome.
	if err := e.strategy.Notify(ctx, *notification); err != nil {
		slog.Warn("delivery strategy failed", "notificationId", notification.ID, "err", err)
	}
	return nil
}

// advanceCaptures flips parsed staging captures to SENT: their offers have
// now been through a digest pass.
func (e *Engine) advanceCaptures(ctx context.Context) {
	if e.captures == nil {
		return
	}
	for _, source := range model.Sources() {
		n, err := e.captures.MarkAllSent(ctx, source)
		if err != nil {
			slog.Warn("advancing captures to SENT failed", "source", source, "err", err)
			continue
		}
		if n > 0 {
			log.Printf("[notify] %d %s capture(s) advanced to SENT", n, source)
		}
	}
}
