package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"estatehub/pipeline-service/internal/model"
)

const (
	olxPageLimit = 40
	httpTimeout  = 15 * time.Second
)

// olxSeed is one category×subcategory starting request against the OLX
// offers API. SubCode is the numeric sub-category code OLX uses (0 rent,
// 1 sale); the parser maps it to the canonical enum.
type olxSeed struct {
	Category string
	SubCode  string
	URL      string
}

// DefaultOLXSeeds returns the seed requests for every scraped OLX
// category×subcategory combination.
func DefaultOLXSeeds() []olxSeed {
	return []olxSeed{
		{
			Category: string(model.CategoryMieszkanie),
			SubCode:  "0",
			URL:      fmt.Sprintf("https://www.olx.pl/api/v1/offers/?offset=0&limit=%d&category_id=14&filter_refiners=spell_checker", olxPageLimit),
		},
		{
			Category: string(model.CategoryMieszkanie),
			SubCode:  "1",
			URL:      fmt.Sprintf("https://www.olx.pl/api/v1/offers/?offset=0&limit=%d&category_id=15&filter_refiners=spell_checker", olxPageLimit),
		},
	}
}

// OLXScraper walks the OLX offers API. Pagination follows the
// links.next.href cursor embedded in every response envelope.
type OLXScraper struct {
	sink   CaptureSink
	client *http.Client
	seeds  []olxSeed
}

// NewOLXScraper constructs a scraper with the default seed table and a
// shared HTTP client.
func NewOLXScraper(sink CaptureSink) *OLXScraper {
	return &OLXScraper{
		sink:   sink,
		client: &http.Client{Timeout: httpTimeout},
		seeds:  DefaultOLXSeeds(),
	}
}

// SetSeeds overrides the seed table. Used by tests and by deployments that
// scrape a narrower category set.
func (s *OLXScraper) SetSeeds(seeds []olxSeed) { s.seeds = seeds }

// Source implements Strategy.
func (s *OLXScraper) Source() model.Source { return model.SourceOLX }

// olxEnvelope mirrors the part of the OLX response needed for pagination.
// The full body is staged untouched; only the cursor is read here.
type olxEnvelope struct {
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"links"`
}

// Scrape walks every seed's pagination branch and appends each fetched page
// as one raw capture. A failed or malformed page ends its branch only.
func (s *OLXScraper) Scrape(ctx context.Context) error {
	log.Printf("[olx-scraper] Starting scrape — %d seed(s)", len(s.seeds))

	var pages int
	for _, seed := range s.seeds {
		nextURL := seed.URL
		for nextURL != "" {
			body, err := s.fetch(ctx, nextURL)
			if err != nil {
				log.Printf("[olx-scraper] Fetch %s failed: %v — stopping branch (%s/%s)",
					nextURL, err, seed.Category, seed.SubCode)
				break
			}

			var env olxEnvelope
			if err := json.Unmarshal(body, &env); err != nil {
				log.Printf("[olx-scraper] Malformed envelope at %s: %v — stopping branch", nextURL, err)
				break
			}

			if _, err := s.sink.Append(ctx, model.SourceOLX, seed.Category, seed.SubCode, string(body)); err != nil {
				return fmt.Errorf("stage olx page: %w", err)
			}
			pages++

			nextURL = env.Links.Next.Href
		}
	}

	log.Printf("[olx-scraper] Done — staged %d page(s)", pages)
	return nil
}

func (s *OLXScraper) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("olx returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
