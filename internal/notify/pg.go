package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"estatehub/pipeline-service/internal/model"
)

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PgStore and ensures the notification-side schema.
// The offers table must already exist (see ingest.NewPgStore).
func NewPgStore(ctx context.Context, pool *pgxpool.Pool) (*PgStore, error) {
	s := &PgStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("notify migrate: %w", err)
	}
	return s, nil
}

func (s *PgStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notification_filters (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			category      TEXT,
			sub_category  TEXT,
			building_type TEXT,
			price_min     NUMERIC,
			price_max     NUMERIC,
			area_min      NUMERIC,
			area_max      NUMERIC,
			rooms         INT,
			furniture     BOOLEAN,
			floor         INT,
			query         TEXT,
			active        BOOLEAN NOT NULL DEFAULT true,
			user_id       UUID
		);

		CREATE TABLE IF NOT EXISTS notifications (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id    UUID NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			read       BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS notification_offers (
			notification_id UUID NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
			offer_id        UUID NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
			PRIMARY KEY (notification_id, offer_id)
		);

		CREATE INDEX IF NOT EXISTS idx_filters_active      ON notification_filters(active);
		CREATE INDEX IF NOT EXISTS idx_notifications_user  ON notifications(user_id);
	`)
	return err
}

// listActiveFiltersQuery selects saved searches for a matching cycle.
// Inactive filters are excluded here, not in the engine.
const listActiveFiltersQuery = `SELECT id, category, sub_category, building_type, price_min, price_max,
        area_min, area_max, rooms, furniture, floor, query, active, user_id
 FROM notification_filters
 WHERE active = true`

// ListActiveFilters implements Store.
func (s *PgStore) ListActiveFilters(ctx context.Context) ([]model.NotificationFilter, error) {
	rows, err := s.pool.Query(ctx, listActiveFiltersQuery)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer rows.Close()

	var filters []model.NotificationFilter
	for rows.Next() {
		var f model.NotificationFilter
		var category, subCategory, buildingType *string
		if err := rows.Scan(
			&f.ID, &category, &subCategory, &buildingType,
			&f.PriceMin, &f.PriceMax, &f.AreaMin, &f.AreaMax,
			&f.Rooms, &f.Furniture, &f.Floor, &f.Query, &f.Active, &f.UserID,
		); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		if category != nil {
			c := model.Category(*category)
			f.Category = &c
		}
		if subCategory != nil {
			sc := model.SubCategory(*subCategory)
			f.SubCategory = &sc
		}
		if buildingType != nil {
			bt := model.BuildingType(*buildingType)
			f.BuildingType = &bt
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// searchOffersQuery builds the offer search statement for one filter. The
// filter's set criteria are AND-combined: exact match on the enums, rooms,
// floor and furniture; range match on the price and area bounds; substring
// match on the title for a free-text query. Unset criteria add no
// predicate, so an empty filter selects everything.
func searchOffersQuery(filter model.NotificationFilter, limit int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.Category != nil {
		add("category = $%d", string(*filter.Category))
	}
	if filter.SubCategory != nil {
		add("sub_category = $%d", string(*filter.SubCategory))
	}
	if filter.BuildingType != nil {
		add("building_type = $%d", string(*filter.BuildingType))
	}
	if filter.PriceMin != nil {
		add("price >= $%d", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		add("price <= $%d", *filter.PriceMax)
	}
	if filter.AreaMin != nil {
		add("area >= $%d", *filter.AreaMin)
	}
	if filter.AreaMax != nil {
		add("area <= $%d", *filter.AreaMax)
	}
	if filter.Rooms != nil {
		add("rooms = $%d", *filter.Rooms)
	}
	if filter.Furniture != nil {
		add("furniture = $%d", *filter.Furniture)
	}
	if filter.Floor != nil {
		add("floor = $%d", *filter.Floor)
	}
	if filter.Query != nil && *filter.Query != "" {
		add("title ILIKE '%%' || $%d || '%%'", *filter.Query)
	}

	query := `SELECT id, title, details_url, category, sub_category, price, rent, area, rooms, floor, created_at
	          FROM offers`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	return query, args
}

// SearchOffers implements Store.
func (s *PgStore) SearchOffers(ctx context.Context, filter model.NotificationFilter, limit int) ([]model.Offer, error) {
	query, args := searchOffersQuery(filter, limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(
			&o.ID, &o.Title, &o.DetailsURL, &o.Category, &o.SubCategory,
			&o.Price, &o.Rent, &o.Area, &o.Rooms, &o.Floor, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// CreateNotification implements Store.
func (s *PgStore) CreateNotification(ctx context.Context, userID, title, message string) (*model.Notification, error) {
	var n model.Notification
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, title, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, title, message, read, created_at`,
		userID, title, message,
	).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

// AttachOffers implements Store.
func (s *PgStore) AttachOffers(ctx context.Context, notificationID string, offerIDs []string) error {
	for _, offerID := range offerIDs {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO notification_offers (notification_id, offer_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			notificationID, offerID,
		)
		if err != nil {
			return fmt.Errorf("attach offer %s: %w", offerID, err)
		}
	}
	return nil
}

// MarkRead flips a notification's read flag. It stays true afterwards.
func (s *PgStore) MarkRead(ctx context.Context, notificationID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1`, notificationID,
	)
	return err
}
