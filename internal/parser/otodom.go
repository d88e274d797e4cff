package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"estatehub/pipeline-service/internal/model"
)

const otodomHost = "https://www.otodom.pl"

// numberPattern matches one numeric token inside a price or measurement
// string, after space normalisation.
var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// OtodomParser parses one staged Otodom listing page. Listings are article
// elements in server-rendered markup.
//
// LowercaseCityHeuristic controls the location split: when enabled (the
// default), a second-to-last location segment starting with a lowercase
// letter is treated as a street or district rather than a city, and city is
// left unset. The rule misclassifies legitimate lowercase-starting place
// names; it stays overridable for deployments that prefer false positives
// over false negatives.
type OtodomParser struct {
	LowercaseCityHeuristic bool
}

// NewOtodomParser returns the Otodom parse strategy with the default
// location heuristic.
func NewOtodomParser() *OtodomParser {
	return &OtodomParser{LowercaseCityHeuristic: true}
}

// ─── Vocabulary mappers ──────────────────────────────────────────────────────

// otodomCategoryMap maps the site's URL category tokens to the canonical
// enum. Unknown tokens map to Pozostałe.
var otodomCategoryMap = map[string]model.Category{
	"mieszkanie":    model.CategoryMieszkanie,
	"kawalerka":     model.CategoryMieszkanie,
	"dom":           model.CategoryDom,
	"inwestycja":    model.CategoryBiuraILokale,
	"pokoj":         model.CategoryPokoj,
	"dzialka":       model.CategoryDzialka,
	"lokal":         model.CategoryBiuraILokale,
	"haleimagazyny": model.CategoryHaleIMagazyny,
	"garaz":         model.CategoryGarazeIParkingi,
}

var otodomSubCategoryMap = map[string]model.SubCategory{
	"wynajem":  model.SubCategoryWynajem,
	"sprzedaz": model.SubCategorySprzedaz,
}

// MapOtodomCategory maps a site category token to the canonical category.
func MapOtodomCategory(token string) model.Category {
	if c, ok := otodomCategoryMap[token]; ok {
		return c
	}
	return model.CategoryPozostale
}

// ─── Parse ───────────────────────────────────────────────────────────────────

// Parse implements Strategy. category and subCategory are the raw site
// tokens recorded when the page was captured.
func (p *OtodomParser) Parse(payload, category, subCategory string) ([]model.ParsedOffer, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("otodom payload: %w", err)
	}

	var offers []model.ParsedOffer
	doc.Find("article").Each(func(_ int, unit *goquery.Selection) {
		href, hasURL := unit.Find(`a[data-testid="listing-item-link"]`).Attr("href")
		title := strings.TrimSpace(unit.Find(`p[data-cy="listing-item-title"]`).Text())
		if !hasURL || href == "" || title == "" {
			return // malformed unit, drop silently
		}

		offer := model.ParsedOffer{
			Title:       title,
			DetailsURL:  absoluteURL(href),
			Category:    MapOtodomCategory(category),
			SubCategory: otodomSubCategoryMap[subCategory],
		}

		if fullPrice := strings.TrimSpace(unit.Find(`span.css-1uwck7i.ewvgbgo0`).Text()); fullPrice != "" {
			offer.Price, offer.Rent = SplitPrice(fullPrice)
		}

		if fullLocation := strings.TrimSpace(unit.Find(`p[data-testid="advert-card-address"]`).Text()); fullLocation != "" {
			offer.Location = p.splitLocation(fullLocation)
		}

		unit.Find("div.css-7wsc2v img").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok && src != "" {
				offer.Photos = append(offer.Photos, src)
			}
		})

		params := collectParams(unit)
		offer.Area = numberIn(params["Powierzchnia"])
		offer.Rooms = intIn(params["Liczba pokoi"])
		offer.Floor = intIn(params["Piętro"])

		offers = append(offers, offer)
	})
	return offers, nil
}

// collectParams pairs the unit's dt/dd detail tags into a key→value map.
func collectParams(unit *goquery.Selection) map[string]string {
	params := make(map[string]string)
	keys := unit.Find("dt")
	values := unit.Find("dd")
	n := keys.Length()
	if values.Length() < n {
		n = values.Length()
	}
	for i := 0; i < n; i++ {
		key := strings.TrimSpace(keys.Eq(i).Text())
		value := strings.TrimSpace(values.Eq(i).Text())
		if key != "" {
			params[key] = value
		}
	}
	return params
}

// SplitPrice separates a combined "price + rent" string into its two
// numeric fields. With a separator present the first number is the price
// and the second the rent; a lone number is the price and rent is absent.
func SplitPrice(full string) (price, rent *float64) {
	if strings.Contains(full, "+") {
		parts := strings.SplitN(full, "+", 2)
		return firstNumber(parts[0]), firstNumber(parts[1])
	}
	return firstNumber(full), nil
}

// firstNumber extracts the leading numeric token of a money string.
// Thousands separators (plain and non-breaking spaces) are collapsed before
// matching, so "1 200 zł" parses as 1200.
func firstNumber(s string) *float64 {
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	match := numberPattern.FindString(s)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

func numberIn(s string) *float64 {
	if s == "" {
		return nil
	}
	return firstNumber(s)
}

func intIn(s string) *int {
	f := numberIn(s)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// splitLocation derives city and region from a combined location string by
// position: the last comma-separated segment is the region, the
// second-to-last the city.
func (p *OtodomParser) splitLocation(full string) model.ParsedLocation {
	segments := strings.Split(full, ",")
	region := capitalise(strings.TrimSpace(segments[len(segments)-1]))
	if len(segments) < 2 {
		return model.ParsedLocation{Region: region}
	}

	city := strings.TrimSpace(segments[len(segments)-2])
	if p.LowercaseCityHeuristic && startsLower(city) {
		city = ""
	}
	return model.ParsedLocation{Region: region, City: city}
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

func capitalise(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return otodomHost + href
}
