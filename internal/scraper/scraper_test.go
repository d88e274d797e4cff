package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"estatehub/pipeline-service/internal/model"
)

// ── Fake sink ───────────────────────────────────────────────────────────────

type stagedPage struct {
	source      model.Source
	category    string
	subCategory string
	payload     string
}

type fakeSink struct {
	pages []stagedPage
}

func (f *fakeSink) Append(_ context.Context, source model.Source, category, subCategory, payload string) (string, error) {
	f.pages = append(f.pages, stagedPage{source, category, subCategory, payload})
	return fmt.Sprintf("capture-%d", len(f.pages)), nil
}

// ── OLX ─────────────────────────────────────────────────────────────────────

func TestOLXScraper_FollowsNextCursor(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page1":
			fmt.Fprintf(w, `{"data": [{"url": "u1", "title": "t1"}], "links": {"next": {"href": %q}}}`,
				srv.URL+"/page2")
		case "/page2":
			fmt.Fprint(w, `{"data": [{"url": "u2", "title": "t2"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sink := &fakeSink{}
	s := NewOLXScraper(sink)
	s.SetSeeds([]olxSeed{{Category: string(model.CategoryMieszkanie), SubCode: "0", URL: srv.URL + "/page1"}})

	if err := s.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned unexpected error: %v", err)
	}
	if len(sink.pages) != 2 {
		t.Fatalf("staged %d pages, want 2 (cursor walk)", len(sink.pages))
	}
	if sink.pages[0].source != model.SourceOLX || sink.pages[0].subCategory != "0" {
		t.Errorf("staged page = %+v", sink.pages[0])
	}
}

func TestOLXScraper_FailedPageStopsBranchOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data": [{"url": "u1", "title": "t1"}]}`)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	s := NewOLXScraper(sink)
	s.SetSeeds([]olxSeed{
		{Category: string(model.CategoryMieszkanie), SubCode: "0", URL: srv.URL + "/broken"},
		{Category: string(model.CategoryMieszkanie), SubCode: "1", URL: srv.URL + "/ok"},
	})

	if err := s.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned unexpected error: %v", err)
	}
	if len(sink.pages) != 1 {
		t.Fatalf("staged %d pages, want 1 (the healthy branch)", len(sink.pages))
	}
	if sink.pages[0].subCategory != "1" {
		t.Errorf("staged page sub code = %q, want 1", sink.pages[0].subCategory)
	}
}

func TestOLXScraper_MalformedEnvelopeStopsBranch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	s := NewOLXScraper(sink)
	s.SetSeeds([]olxSeed{{Category: string(model.CategoryMieszkanie), SubCode: "0", URL: srv.URL}})

	if err := s.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned unexpected error: %v", err)
	}
	if len(sink.pages) != 0 {
		t.Errorf("staged %d pages, want 0 (unpaginatable body is not staged)", len(sink.pages))
	}
}

// ── Otodom ──────────────────────────────────────────────────────────────────

func TestOtodomScraper_StopsWithoutNextControl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `<html><body><ul><li aria-label="Go to next Page">2</li></ul></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>last page</body></html>`)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	s := NewOtodomScraper(sink)
	s.SetBaseURL(srv.URL)
	s.categories = []string{"mieszkanie"}
	s.dealTypes = []string{"wynajem"}

	if err := s.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned unexpected error: %v", err)
	}
	if len(sink.pages) != 2 {
		t.Fatalf("staged %d pages, want 2 (walk ends when the control disappears)", len(sink.pages))
	}
	if sink.pages[0].category != "mieszkanie" || sink.pages[0].subCategory != "wynajem" {
		t.Errorf("staged page = %+v", sink.pages[0])
	}
}

func TestOtodomScraper_FailedPageStopsBranchOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pl/wyniki/wynajem/mieszkanie/cala-polska" {
			http.Error(w, "blocked", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `<html><body>single page</body></html>`)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	s := NewOtodomScraper(sink)
	s.SetBaseURL(srv.URL)
	s.categories = []string{"mieszkanie", "dom"}
	s.dealTypes = []string{"wynajem"}

	if err := s.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned unexpected error: %v", err)
	}
	if len(sink.pages) != 1 {
		t.Fatalf("staged %d pages, want 1 (the blocked branch stops alone)", len(sink.pages))
	}
	if sink.pages[0].category != "dom" {
		t.Errorf("staged page category = %q, want dom", sink.pages[0].category)
	}
}
