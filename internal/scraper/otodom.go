package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"estatehub/pipeline-service/internal/model"
)

const otodomUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0"

// otodomCategories are the raw site category tokens; the parser maps them
// to the canonical enum.
var otodomCategories = []string{
	"mieszkanie", "kawalerka", "dom", "inwestycja", "pokoj",
	"dzialka", "lokal", "haleimagazyny", "garaz",
}

// otodomDealTypes are the site's transaction tokens (rent, sale).
var otodomDealTypes = []string{"wynajem", "sprzedaz"}

// OtodomScraper walks Otodom's server-rendered listing pages. Pagination is
// a page number; the walk continues while the markup carries a "go to next
// page" control.
type OtodomScraper struct {
	sink       CaptureSink
	client     *http.Client
	baseURL    string
	categories []string
	dealTypes  []string
}

// NewOtodomScraper constructs a scraper over the full category×deal-type
// matrix with a shared HTTP client.
func NewOtodomScraper(sink CaptureSink) *OtodomScraper {
	return &OtodomScraper{
		sink:       sink,
		client:     &http.Client{Timeout: httpTimeout},
		baseURL:    "https://www.otodom.pl",
		categories: otodomCategories,
		dealTypes:  otodomDealTypes,
	}
}

// SetBaseURL overrides the site base. Used by tests.
func (s *OtodomScraper) SetBaseURL(base string) { s.baseURL = strings.TrimRight(base, "/") }

// Source implements Strategy.
func (s *OtodomScraper) Source() model.Source { return model.SourceOtodom }

// Scrape walks every category×deal-type branch page by page. A failed page
// ends its branch only; every fetched page is staged as one raw capture.
func (s *OtodomScraper) Scrape(ctx context.Context) error {
	log.Printf("[otodom-scraper] Starting scrape — %d categories × %d deal types",
		len(s.categories), len(s.dealTypes))

	var pages int
	for _, dealType := range s.dealTypes {
		for _, category := range s.categories {
			staged, err := s.scrapeBranch(ctx, category, dealType)
			if err != nil {
				return err
			}
			pages += staged
		}
	}

	log.Printf("[otodom-scraper] Done — staged %d page(s)", pages)
	return nil
}

// scrapeBranch pages through one category×deal-type listing until the next
// page control disappears. Only sink errors propagate; fetch errors stop
// the branch.
func (s *OtodomScraper) scrapeBranch(ctx context.Context, category, dealType string) (int, error) {
	var staged int
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/pl/wyniki/%s/%s/cala-polska?viewType=listing&page=%d",
			s.baseURL, dealType, category, page)

		body, err := s.fetch(ctx, url)
		if err != nil {
			log.Printf("[otodom-scraper] Fetch %s failed: %v — stopping branch", url, err)
			return staged, nil
		}

		if _, err := s.sink.Append(ctx, model.SourceOtodom, category, dealType, body); err != nil {
			return staged, fmt.Errorf("stage otodom page: %w", err)
		}
		staged++

		if !hasNextPage(body) {
			return staged, nil
		}
	}
}

// hasNextPage reports whether the listing markup carries the site's next
// page control.
func hasNextPage(content string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return false
	}
	return doc.Find(`li[aria-label="Go to next Page"]`).Length() > 0
}

func (s *OtodomScraper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", otodomUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("otodom returned %d", resp.StatusCode)
	}
	return string(body), nil
}
