package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"estatehub/pipeline-service/internal/ingest"
	"estatehub/pipeline-service/internal/model"
)

// ── Fake store ──────────────────────────────────────────────────────────────

// fakeStore is an in-memory Store. Hooks let individual tests inject
// race outcomes.
type fakeStore struct {
	offers  map[string]bool // details URL → known
	regions map[string]*model.Region
	cities  map[string]*model.City // "name|regionID"

	regionCreates int
	cityCreates   int
	offerCreates  int
	lastCityID    *string

	createRegionHook func(name string) error
	createOfferErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offers:  make(map[string]bool),
		regions: make(map[string]*model.Region),
		cities:  make(map[string]*model.City),
	}
}

func (f *fakeStore) OfferExistsByURL(_ context.Context, url string) (bool, error) {
	return f.offers[url], nil
}

func (f *fakeStore) RegionByName(_ context.Context, name string) (*model.Region, error) {
	if r, ok := f.regions[name]; ok {
		return r, nil
	}
	return nil, ingest.ErrNotFound
}

func (f *fakeStore) CreateRegion(_ context.Context, name string) (*model.Region, error) {
	if f.createRegionHook != nil {
		if err := f.createRegionHook(name); err != nil {
			return nil, err
		}
	}
	if _, ok := f.regions[name]; ok {
		return nil, ingest.ErrDuplicate
	}
	f.regionCreates++
	r := &model.Region{ID: fmt.Sprintf("region-%d", f.regionCreates), Name: name}
	f.regions[name] = r
	return r, nil
}

func (f *fakeStore) CityByName(_ context.Context, name, regionID string) (*model.City, error) {
	if c, ok := f.cities[name+"|"+regionID]; ok {
		return c, nil
	}
	return nil, ingest.ErrNotFound
}

func (f *fakeStore) CreateCity(_ context.Context, name, regionID string) (*model.City, error) {
	if _, ok := f.cities[name+"|"+regionID]; ok {
		return nil, ingest.ErrDuplicate
	}
	f.cityCreates++
	c := &model.City{ID: fmt.Sprintf("city-%d", f.cityCreates), Name: name, RegionID: regionID}
	f.cities[name+"|"+regionID] = c
	return c, nil
}

func (f *fakeStore) CreateOffer(_ context.Context, offer model.ParsedOffer, cityID *string) (*model.Offer, error) {
	if f.createOfferErr != nil {
		return nil, f.createOfferErr
	}
	if f.offers[offer.DetailsURL] {
		return nil, ingest.ErrDuplicate
	}
	f.offers[offer.DetailsURL] = true
	f.offerCreates++
	f.lastCityID = cityID
	created := &model.Offer{ID: fmt.Sprintf("offer-%d", f.offerCreates), Title: offer.Title, DetailsURL: offer.DetailsURL}
	if cityID != nil {
		created.CityID = *cityID
	}
	return created, nil
}

func candidate(url string) model.ParsedOffer {
	return model.ParsedOffer{
		Title:      "Mieszkanie na wynajem",
		DetailsURL: url,
		Category:   model.CategoryMieszkanie,
		Location:   model.ParsedLocation{Region: "Małopolskie", City: "Kraków"},
	}
}

// ── Ingest ──────────────────────────────────────────────────────────────────

func TestIngest_PersistsNewOffer(t *testing.T) {
	store := newFakeStore()
	svc := ingest.NewService(store)

	created, err := svc.Ingest(context.Background(), candidate("https://example.com/a"))
	if err != nil {
		t.Fatalf("Ingest returned unexpected error: %v", err)
	}
	if created == nil || created.ID == "" {
		t.Fatal("Ingest should return the created offer")
	}
	if store.lastCityID == nil {
		t.Error("offer should reference the resolved city")
	}
}

func TestIngest_RejectsKnownURL(t *testing.T) {
	store := newFakeStore()
	svc := ingest.NewService(store)

	if _, err := svc.Ingest(context.Background(), candidate("https://example.com/a")); err != nil {
		t.Fatalf("first Ingest returned unexpected error: %v", err)
	}

	_, err := svc.Ingest(context.Background(), candidate("https://example.com/a"))
	if !errors.Is(err, ingest.ErrOfferExists) {
		t.Errorf("second Ingest error = %v, want ErrOfferExists", err)
	}
	if store.offerCreates != 1 {
		t.Errorf("offerCreates = %d, want 1", store.offerCreates)
	}
}

func TestIngest_ReusesRegionAndCity(t *testing.T) {
	store := newFakeStore()
	svc := ingest.NewService(store)

	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://example.com/%d", i)
		if _, err := svc.Ingest(context.Background(), candidate(url)); err != nil {
			t.Fatalf("Ingest %d returned unexpected error: %v", i, err)
		}
	}

	if store.regionCreates != 1 {
		t.Errorf("regionCreates = %d, want 1 (resolve-or-create reuses by name)", store.regionCreates)
	}
	if store.cityCreates != 1 {
		t.Errorf("cityCreates = %d, want 1", store.cityCreates)
	}
}

func TestIngest_RecoversLostRegionRace(t *testing.T) {
	store := newFakeStore()
	svc := ingest.NewService(store)

	// The create loses the race: a concurrent ingestion inserted the region
	// between lookup and create. The service must re-read, not fail.
	raced := false
	store.createRegionHook = func(name string) error {
		if !raced {
			raced = true
			store.regions[name] = &model.Region{ID: "region-raced", Name: name}
			return ingest.ErrDuplicate
		}
		return nil
	}

	created, err := svc.Ingest(context.Background(), candidate("https://example.com/a"))
	if err != nil {
		t.Fatalf("Ingest should recover from a lost creation race, got: %v", err)
	}
	if created == nil {
		t.Fatal("Ingest should return the created offer")
	}
	if store.cities["Kraków|region-raced"] == nil {
		t.Error("city should hang off the concurrently created region")
	}
}

func TestIngest_NoCityWhenNameMissing(t *testing.T) {
	store := newFakeStore()
	svc := ingest.NewService(store)

	offer := candidate("https://example.com/a")
	offer.Location.City = ""

	if _, err := svc.Ingest(context.Background(), offer); err != nil {
		t.Fatalf("Ingest returned unexpected error: %v", err)
	}
	if store.lastCityID != nil {
		t.Errorf("cityID = %v, want nil when the location names no city", *store.lastCityID)
	}
	if store.regionCreates != 1 {
		t.Errorf("regionCreates = %d, the region alone should still be created", store.regionCreates)
	}
}

func TestIngest_NoLocationAtAll(t *testing.T) {
	store := newFakeStore()
	svc := ingest.NewService(store)

	offer := candidate("https://example.com/a")
	offer.Location = model.ParsedLocation{}

	if _, err := svc.Ingest(context.Background(), offer); err != nil {
		t.Fatalf("Ingest returned unexpected error: %v", err)
	}
	if store.regionCreates != 0 || store.cityCreates != 0 {
		t.Errorf("no region/city should be created without a region name (got %d/%d)",
			store.regionCreates, store.cityCreates)
	}
}

func TestIngest_CreateRaceMapsToExists(t *testing.T) {
	store := newFakeStore()
	store.createOfferErr = ingest.ErrDuplicate
	svc := ingest.NewService(store)

	_, err := svc.Ingest(context.Background(), candidate("https://example.com/a"))
	if !errors.Is(err, ingest.ErrOfferExists) {
		t.Errorf("Ingest error = %v, want ErrOfferExists when the unique constraint fires", err)
	}
}
