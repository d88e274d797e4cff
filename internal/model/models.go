// Package model defines the canonical vocabulary shared by the whole
// pipeline: the source enum, the listing taxonomy and the normalised
// Offer shape that every source-specific parser produces.
package model

import (
	"fmt"
	"time"
)

// ─── Sources ─────────────────────────────────────────────────────────────────

// Source identifies one external classifieds site with its own data shape.
type Source string

const (
	SourceOLX    Source = "olx"
	SourceOtodom Source = "otodom"
)

// ParseSource converts a raw string to a Source, returning an error for
// unknown values. Used at the trigger surface (HTTP admin, scheduler).
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceOLX, SourceOtodom:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Sources lists every registered source, in scrape order.
func Sources() []Source {
	return []Source{SourceOLX, SourceOtodom}
}

// ─── Listing taxonomy ────────────────────────────────────────────────────────

// Category is the canonical listing category. Values mirror the offers
// category enum in PostgreSQL.
type Category string

const (
	CategoryMieszkanie      Category = "Mieszkanie"
	CategoryPokoj           Category = "Pokój"
	CategoryDom             Category = "Dom"
	CategoryDzialka         Category = "Działka"
	CategoryBiuraILokale    Category = "Biura i lokale"
	CategoryGarazeIParkingi Category = "Garaże i parkingi"
	CategoryStancjeIPokoje  Category = "Stancje i pokoje"
	CategoryHaleIMagazyny   Category = "Hale i magazyny"
	CategoryPozostale       Category = "Pozostałe"
)

// SubCategory distinguishes rental offers from sale offers.
type SubCategory string

const (
	SubCategoryWynajem  SubCategory = "Wynajem"
	SubCategorySprzedaz SubCategory = "Sprzedaż"
)

// BuildingType is the optional building classification carried by some
// sources. Empty means unknown.
type BuildingType string

const (
	BuildingApartamentowiec BuildingType = "Apartamentowiec"
	BuildingBlok            BuildingType = "Blok"
	BuildingKamienica       BuildingType = "Kamienica"
	BuildingLoft            BuildingType = "Loft"
	BuildingPozostale       BuildingType = "Pozostałe"
)

// ParseBuildingType maps a source token to a BuildingType. Unknown tokens
// map to the empty value, never an error — upstream vocabularies drift and
// a single unrecognised label must not drop the whole listing.
func ParseBuildingType(s string) BuildingType {
	switch BuildingType(s) {
	case BuildingApartamentowiec, BuildingBlok, BuildingKamienica, BuildingLoft, BuildingPozostale:
		return BuildingType(s)
	}
	return ""
}

// ─── Canonical records ───────────────────────────────────────────────────────

// Region is a top-level geographic reference row.
type Region struct {
	ID   string
	Name string
}

// City belongs to exactly one Region.
type City struct {
	ID       string
	Name     string
	RegionID string
}

// Photo is one ordered image URL attached to an offer. URLs are stored,
// never fetched.
type Photo struct {
	ID       string
	URL      string
	Position int
}

// Offer is the normalised, source-agnostic listing record.
// DetailsURL is the unique business key: re-ingesting a known URL is
// rejected, never duplicated.
type Offer struct {
	ID            string
	Title         string
	DetailsURL    string
	Category      Category
	SubCategory   SubCategory
	BuildingType  BuildingType
	Price         *float64
	Rent          *float64
	Description   *string
	PricePerM     *float64
	Area          *float64
	BuildingFloor *int
	Floor         *int
	Rooms         *int
	Furniture     *bool
	Photos        []Photo
	CityID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ─── Parser output ───────────────────────────────────────────────────────────

// ParsedLocation is the city/region pair extracted from a source payload.
// City may be empty when the source location string could not be split
// confidently.
type ParsedLocation struct {
	Region string
	City   string
}

// ParsedOffer is one candidate listing produced by a source parser, before
// deduplication and persistence. Optional fields are nil when the source
// did not carry them.
type ParsedOffer struct {
	Title         string
	DetailsURL    string
	Category      Category
	SubCategory   SubCategory
	BuildingType  BuildingType
	Price         *float64
	Rent          *float64
	Description   *string
	PricePerM     *float64
	Area          *float64
	BuildingFloor *int
	Floor         *int
	Rooms         *int
	Furniture     *bool
	Photos        []string
	Location      ParsedLocation
}

// ─── Saved searches & notifications ──────────────────────────────────────────

// NotificationFilter is a user-owned saved search. Nil criteria impose no
// constraint during matching. Inactive filters are excluded from matching
// runs without deleting history.
type NotificationFilter struct {
	ID           string
	Category     *Category
	SubCategory  *SubCategory
	BuildingType *BuildingType
	PriceMin     *float64
	PriceMax     *float64
	AreaMin      *float64
	AreaMax      *float64
	Rooms        *int
	Furniture    *bool
	Floor        *int
	Query        *string
	Active       bool
	UserID       *string
}

// Notification is one digest produced by a matching cycle. Immutable after
// creation except for Read, which flips true exactly once.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
	OfferIDs  []string
}
