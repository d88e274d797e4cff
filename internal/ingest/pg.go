package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"estatehub/pipeline-service/internal/model"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PgStore and ensures the offer-side schema.
func NewPgStore(ctx context.Context, pool *pgxpool.Pool) (*PgStore, error) {
	s := &PgStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("ingest migrate: %w", err)
	}
	return s, nil
}

func (s *PgStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS regions (
			id   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT UNIQUE NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cities (
			id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name      TEXT NOT NULL,
			region_id UUID NOT NULL REFERENCES regions(id),
			UNIQUE (name, region_id)
		);

		CREATE TABLE IF NOT EXISTS offers (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title          TEXT NOT NULL,
			details_url    TEXT UNIQUE NOT NULL,
			category       TEXT NOT NULL,
			sub_category   TEXT NOT NULL DEFAULT '',
			building_type  TEXT,
			price          NUMERIC,
			rent           NUMERIC,
			description    TEXT,
			price_per_m    NUMERIC,
			area           NUMERIC,
			building_floor INT,
			floor          INT,
			rooms          INT,
			furniture      BOOLEAN,
			city_id        UUID REFERENCES cities(id),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS photos (
			id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			offer_id UUID NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
			url      TEXT NOT NULL,
			position INT  NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_offers_category ON offers(category);
		CREATE INDEX IF NOT EXISTS idx_offers_price    ON offers(price);
		CREATE INDEX IF NOT EXISTS idx_offers_area     ON offers(area);
		CREATE INDEX IF NOT EXISTS idx_photos_offer    ON photos(offer_id);
	`)
	return err
}

// OfferExistsByURL implements Store.
func (s *PgStore) OfferExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM offers WHERE details_url = $1)`, url,
	).Scan(&exists)
	return exists, err
}

// RegionByName implements Store.
func (s *PgStore) RegionByName(ctx context.Context, name string) (*model.Region, error) {
	var r model.Region
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM regions WHERE name = $1`, name,
	).Scan(&r.ID, &r.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRegion implements Store. A lost uniqueness race surfaces as
// ErrDuplicate so the caller can re-read.
func (s *PgStore) CreateRegion(ctx context.Context, name string) (*model.Region, error) {
	var r model.Region
	err := s.pool.QueryRow(ctx,
		`INSERT INTO regions (name) VALUES ($1) RETURNING id, name`, name,
	).Scan(&r.ID, &r.Name)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CityByName implements Store.
func (s *PgStore) CityByName(ctx context.Context, name, regionID string) (*model.City, error) {
	var c model.City
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, region_id FROM cities WHERE name = $1 AND region_id = $2`,
		name, regionID,
	).Scan(&c.ID, &c.Name, &c.RegionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCity implements Store.
func (s *PgStore) CreateCity(ctx context.Context, name, regionID string) (*model.City, error) {
	var c model.City
	err := s.pool.QueryRow(ctx,
		`INSERT INTO cities (name, region_id) VALUES ($1, $2) RETURNING id, name, region_id`,
		name, regionID,
	).Scan(&c.ID, &c.Name, &c.RegionID)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateOffer implements Store. The offer row and its photo rows commit or
// roll back together — no half-written offers.
func (s *PgStore) CreateOffer(ctx context.Context, offer model.ParsedOffer, cityID *string) (*model.Offer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	created := model.Offer{
		Title:         offer.Title,
		DetailsURL:    offer.DetailsURL,
		Category:      offer.Category,
		SubCategory:   offer.SubCategory,
		BuildingType:  offer.BuildingType,
		Price:         offer.Price,
		Rent:          offer.Rent,
		Description:   offer.Description,
		PricePerM:     offer.PricePerM,
		Area:          offer.Area,
		BuildingFloor: offer.BuildingFloor,
		Floor:         offer.Floor,
		Rooms:         offer.Rooms,
		Furniture:     offer.Furniture,
	}

	var buildingType *string
	if offer.BuildingType != "" {
		bt := string(offer.BuildingType)
		buildingType = &bt
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO offers (title, details_url, category, sub_category, building_type,
		                     price, rent, description, price_per_m, area,
		                     building_floor, floor, rooms, furniture, city_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at, updated_at`,
		offer.Title, offer.DetailsURL, string(offer.Category), string(offer.SubCategory),
		buildingType, offer.Price, offer.Rent, offer.Description, offer.PricePerM,
		offer.Area, offer.BuildingFloor, offer.Floor, offer.Rooms, offer.Furniture, cityID,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	if cityID != nil {
		created.CityID = *cityID
	}

	for i, url := range offer.Photos {
		var photo model.Photo
		err = tx.QueryRow(ctx,
			`INSERT INTO photos (offer_id, url, position) VALUES ($1, $2, $3)
			 RETURNING id, url, position`,
			created.ID, url, i,
		).Scan(&photo.ID, &photo.URL, &photo.Position)
		if err != nil {
			return nil, fmt.Errorf("insert photo %d: %w", i, err)
		}
		created.Photos = append(created.Photos, photo)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &created, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
