package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"estatehub/pipeline-service/internal/model"
)

// OLXParser parses one staged OLX API response. The payload is the JSON
// envelope exactly as fetched; listings live under data[].
type OLXParser struct{}

// NewOLXParser returns the OLX parse strategy.
func NewOLXParser() *OLXParser { return &OLXParser{} }

// ─── Payload shape ───────────────────────────────────────────────────────────

type olxPayload struct {
	Data []olxUnit `json:"data"`
}

type olxUnit struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		Region struct {
			Name string `json:"name"`
		} `json:"region"`
	} `json:"location"`
	Photos []struct {
		Link   string `json:"link"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"photos"`
	Params []olxParam `json:"params"`
}

type olxParam struct {
	Key   string `json:"key"`
	Value struct {
		Value    float64 `json:"value"`
		Currency string  `json:"currency"`
		Label    string  `json:"label"`
		Key      string  `json:"key"`
	} `json:"value"`
}

// ─── Vocabulary mappers ──────────────────────────────────────────────────────

// labelParams are the param keys whose human-readable label carries the
// value; all other non-price params carry it in the machine key.
var labelParams = map[string]bool{
	"roomsize":     true,
	"floor_select": true,
	"builttype":    true,
	"floor":        true,
	"type":         true,
}

// olxFloorCodes maps the site's floor labels to canonical floor numbers.
var olxFloorCodes = map[string]int{
	"Parter":     0,
	"1":          1,
	"2":          2,
	"3":          3,
	"4":          4,
	"5":          5,
	"6":          6,
	"7":          7,
	"8":          8,
	"9":          9,
	"10":         10,
	"Powyżej 10": 10,
}

// olxRoomCodes maps the site's room-count words to numbers.
var olxRoomCodes = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
}

// olxSubCategories maps OLX's numeric sub-category codes recorded at scrape
// time to the canonical enum.
var olxSubCategories = map[string]model.SubCategory{
	"0": model.SubCategoryWynajem,
	"1": model.SubCategorySprzedaz,
}

// descriptionTokens are the markup fragments stripped from free-text
// descriptions. Coarse fixed-token cleanup, not a full HTML parse.
var descriptionTokens = []string{
	"<br />", "</ul>", "<ul>", "<li>", "</li>", "<p>", "</p>", "<strong>", "</strong>",
}

// MapFloorCode maps a floor label to a canonical floor number. Unknown
// codes map to nil, never an error.
func MapFloorCode(code string) *int {
	if floor, ok := olxFloorCodes[code]; ok {
		return &floor
	}
	return nil
}

// MapRoomCode maps a room-count word to a number. Unknown codes map to nil.
func MapRoomCode(code string) *int {
	if rooms, ok := olxRoomCodes[code]; ok {
		return &rooms
	}
	return nil
}

// StripMarkupTokens removes the fixed set of lightweight markup tokens from
// a description.
func StripMarkupTokens(text string) string {
	for _, token := range descriptionTokens {
		text = strings.ReplaceAll(text, token, "")
	}
	return text
}

// ─── Parse ───────────────────────────────────────────────────────────────────

// Parse implements Strategy. category arrives already canonical (the seed
// table records it); subCategory is the numeric OLX code.
func (p *OLXParser) Parse(payload, category, subCategory string) ([]model.ParsedOffer, error) {
	var content olxPayload
	if err := json.Unmarshal([]byte(payload), &content); err != nil {
		return nil, fmt.Errorf("olx payload: %w", err)
	}

	offers := make([]model.ParsedOffer, 0, len(content.Data))
	for _, unit := range content.Data {
		if unit.URL == "" || unit.Title == "" {
			continue // malformed unit, drop silently
		}

		offer := model.ParsedOffer{
			Title:       unit.Title,
			DetailsURL:  unit.URL,
			Category:    model.Category(category),
			SubCategory: olxSubCategories[subCategory],
			Location: model.ParsedLocation{
				Region: unit.Location.Region.Name,
				City:   unit.Location.City.Name,
			},
		}

		if unit.Description != "" {
			desc := StripMarkupTokens(unit.Description)
			offer.Description = &desc
		}

		for _, photo := range unit.Photos {
			if photo.Link == "" {
				continue
			}
			link := strings.ReplaceAll(photo.Link, "{width}", strconv.Itoa(photo.Width))
			link = strings.ReplaceAll(link, "{height}", strconv.Itoa(photo.Height))
			offer.Photos = append(offer.Photos, link)
		}

		p.applyParams(&offer, unit.Params)
		offers = append(offers, offer)
	}
	return offers, nil
}

// applyParams folds the unit's param list into the offer, mapping each
// source code to its canonical field.
func (p *OLXParser) applyParams(offer *model.ParsedOffer, params []olxParam) {
	for _, param := range params {
		switch param.Key {
		case "price":
			v := param.Value.Value
			offer.Price = &v
		case "rent":
			offer.Rent = parseFloatToken(paramValue(param))
		case "price_per_m":
			offer.PricePerM = parseFloatToken(paramValue(param))
		case "m", "area":
			offer.Area = parseFloatToken(paramValue(param))
		case "builttype":
			offer.BuildingType = model.ParseBuildingType(paramValue(param))
		case "floor_select":
			offer.BuildingFloor = MapFloorCode(paramValue(param))
		case "floor":
			offer.Floor = MapFloorCode(paramValue(param))
		case "rooms":
			offer.Rooms = MapRoomCode(paramValue(param))
		case "furniture":
			switch paramValue(param) {
			case "yes":
				yes := true
				offer.Furniture = &yes
			case "no":
				no := false
				offer.Furniture = &no
			}
		}
	}
}

// paramValue extracts the string value of a non-price param: label-carrying
// keys read the label, everything else reads the machine key.
func paramValue(param olxParam) string {
	if labelParams[param.Key] {
		return param.Value.Label
	}
	return param.Value.Key
}

func parseFloatToken(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}
