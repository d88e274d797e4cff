// Package ingest persists parsed offer candidates into the canonical
// store: deduplication by details URL, region/city resolve-or-create and
// the offer+photos write.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"estatehub/pipeline-service/internal/model"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrOfferExists is returned when an offer with the same details URL is
// already known. First-seen data is authoritative; this is a rejection,
// not a failure.
var ErrOfferExists = errors.New("offer already exists")

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by creates that lost a uniqueness race.
var ErrDuplicate = errors.New("duplicate row")

// ─── Store contract ──────────────────────────────────────────────────────────

// Store is the canonical-store surface the ingestion service needs.
type Store interface {
	OfferExistsByURL(ctx context.Context, url string) (bool, error)
	RegionByName(ctx context.Context, name string) (*model.Region, error)
	CreateRegion(ctx context.Context, name string) (*model.Region, error)
	CityByName(ctx context.Context, name, regionID string) (*model.City, error)
	CreateCity(ctx context.Context, name, regionID string) (*model.City, error)
	// CreateOffer persists the offer row and its ordered photo rows in one
	// transaction. A nil cityID stores the offer without a city reference.
	CreateOffer(ctx context.Context, offer model.ParsedOffer, cityID *string) (*model.Offer, error)
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service ingests parsed offers.
type Service struct {
	store Store
}

// NewService returns a configured Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Ingest persists one parsed offer. Returns ErrOfferExists when the details
// URL is already known. The region and city named by the offer's location
// are resolved or created first; a missing city name (the location split
// could not name one confidently) leaves the offer without a city
// reference.
func (s *Service) Ingest(ctx context.Context, offer model.ParsedOffer) (*model.Offer, error) {
	exists, err := s.store.OfferExistsByURL(ctx, offer.DetailsURL)
	if err != nil {
		return nil, fmt.Errorf("offer lookup: %w", err)
	}
	if exists {
		return nil, ErrOfferExists
	}

	var cityID *string
	if offer.Location.Region != "" {
		region, err := s.resolveRegion(ctx, offer.Location.Region)
		if err != nil {
			return nil, err
		}
		if offer.Location.City != "" {
			city, err := s.resolveCity(ctx, offer.Location.City, region.ID)
			if err != nil {
				return nil, err
			}
			cityID = &city.ID
		}
	}

	created, err := s.store.CreateOffer(ctx, offer, cityID)
	if err != nil {
		// The existence check above narrows but cannot close the window;
		// the unique constraint is the real gate.
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrOfferExists
		}
		return nil, fmt.Errorf("create offer: %w", err)
	}
	return created, nil
}

// resolveRegion returns the region with the given name, creating it when
// absent. Losing the create race to a concurrent ingestion is recovered by
// re-reading: creation is idempotent by name.
func (s *Service) resolveRegion(ctx context.Context, name string) (*model.Region, error) {
	for attempt := 0; attempt < 2; attempt++ {
		region, err := s.store.RegionByName(ctx, name)
		if err == nil {
			return region, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("region lookup %q: %w", name, err)
		}

		region, err = s.store.CreateRegion(ctx, name)
		if err == nil {
			return region, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("create region %q: %w", name, err)
		}
		log.Printf("[ingest] Region %q created concurrently — re-reading", name)
	}
	return nil, fmt.Errorf("region %q: lost creation race twice", name)
}

// resolveCity mirrors resolveRegion within one region.
func (s *Service) resolveCity(ctx context.Context, name, regionID string) (*model.City, error) {
	for attempt := 0; attempt < 2; attempt++ {
		city, err := s.store.CityByName(ctx, name, regionID)
		if err == nil {
			return city, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("city lookup %q: %w", name, err)
		}

		city, err = s.store.CreateCity(ctx, name, regionID)
		if err == nil {
			return city, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("create city %q: %w", name, err)
		}
		log.Printf("[ingest] City %q created concurrently — re-reading", name)
	}
	return nil, fmt.Errorf("city %q: lost creation race twice", name)
}
