package parser_test

import (
	"testing"

	"estatehub/pipeline-service/internal/model"
	"estatehub/pipeline-service/internal/parser"
)

// ── Vocabulary mappers ──────────────────────────────────────────────────────

func TestMapFloorCode(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"Parter", 0},
		{"1", 1},
		{"7", 7},
		{"Powyżej 10", 10},
	}
	for _, c := range cases {
		got := parser.MapFloorCode(c.code)
		if got == nil || *got != c.want {
			t.Errorf("MapFloorCode(%q) = %v, want %d", c.code, got, c.want)
		}
	}
}

func TestMapFloorCode_Unknown(t *testing.T) {
	for _, code := range []string{"", "Suterena", "11"} {
		if got := parser.MapFloorCode(code); got != nil {
			t.Errorf("MapFloorCode(%q) = %d, want nil", code, *got)
		}
	}
}

func TestMapRoomCode(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"one", 1},
		{"two", 2},
		{"three", 3},
		{"four", 4},
	}
	for _, c := range cases {
		got := parser.MapRoomCode(c.code)
		if got == nil || *got != c.want {
			t.Errorf("MapRoomCode(%q) = %v, want %d", c.code, got, c.want)
		}
	}
	if got := parser.MapRoomCode("five"); got != nil {
		t.Errorf("MapRoomCode(\"five\") = %d, want nil", *got)
	}
}

func TestStripMarkupTokens(t *testing.T) {
	in := "<p>Jasne mieszkanie<br /><strong>blisko centrum</strong></p><ul><li>balkon</li></ul>"
	want := "Jasne mieszkanieblisko centrumbalkon"
	if got := parser.StripMarkupTokens(in); got != want {
		t.Errorf("StripMarkupTokens() = %q, want %q", got, want)
	}
}

// ── Parse ───────────────────────────────────────────────────────────────────

const olxFullPayload = `{
  "data": [
    {
      "url": "https://www.olx.pl/d/oferta/mieszkanie-3-pokoje-CID3-IDabc.html",
      "title": "Mieszkanie 3 pokoje",
      "description": "<p>Słoneczne mieszkanie<br />po remoncie</p>",
      "location": {
        "city": {"name": "Kraków"},
        "region": {"name": "Małopolskie"}
      },
      "photos": [
        {"link": "https://img.olx.pl/abc;s={width}x{height}", "width": 1000, "height": 700}
      ],
      "params": [
        {"key": "price", "value": {"value": 2500, "currency": "PLN", "label": "2 500 zł", "key": ""}},
        {"key": "rent", "value": {"value": 0, "label": "350 zł", "key": "350"}},
        {"key": "m", "value": {"value": 0, "label": "42,5 m²", "key": "42,5"}},
        {"key": "rooms", "value": {"value": 0, "label": "3 pokoje", "key": "three"}},
        {"key": "floor_select", "value": {"value": 0, "label": "Parter", "key": "floor_0"}},
        {"key": "builttype", "value": {"value": 0, "label": "Blok", "key": "blok"}},
        {"key": "furniture", "value": {"value": 0, "label": "Tak", "key": "yes"}}
      ]
    }
  ]
}`

func TestOLXParse_MapsFields(t *testing.T) {
	p := parser.NewOLXParser()
	offers, err := p.Parse(olxFullPayload, string(model.CategoryMieszkanie), "0")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("Parse returned %d offers, want 1", len(offers))
	}

	o := offers[0]
	if o.Title != "Mieszkanie 3 pokoje" {
		t.Errorf("Title = %q", o.Title)
	}
	if o.DetailsURL != "https://www.olx.pl/d/oferta/mieszkanie-3-pokoje-CID3-IDabc.html" {
		t.Errorf("DetailsURL = %q", o.DetailsURL)
	}
	if o.Category != model.CategoryMieszkanie {
		t.Errorf("Category = %q, want %q", o.Category, model.CategoryMieszkanie)
	}
	if o.SubCategory != model.SubCategoryWynajem {
		t.Errorf("SubCategory = %q, want %q (sub code 0 is rent)", o.SubCategory, model.SubCategoryWynajem)
	}
	if o.Price == nil || *o.Price != 2500 {
		t.Errorf("Price = %v, want 2500", o.Price)
	}
	if o.Rent == nil || *o.Rent != 350 {
		t.Errorf("Rent = %v, want 350", o.Rent)
	}
	if o.Area == nil || *o.Area != 42.5 {
		t.Errorf("Area = %v, want 42.5", o.Area)
	}
	if o.Rooms == nil || *o.Rooms != 3 {
		t.Errorf("Rooms = %v, want 3", o.Rooms)
	}
	if o.BuildingFloor == nil || *o.BuildingFloor != 0 {
		t.Errorf("BuildingFloor = %v, want 0 (Parter)", o.BuildingFloor)
	}
	if o.BuildingType != model.BuildingBlok {
		t.Errorf("BuildingType = %q, want %q", o.BuildingType, model.BuildingBlok)
	}
	if o.Furniture == nil || !*o.Furniture {
		t.Errorf("Furniture = %v, want true", o.Furniture)
	}
	if o.Description == nil || *o.Description != "Słoneczne mieszkaniepo remoncie" {
		t.Errorf("Description = %v, markup tokens should be stripped", o.Description)
	}
	if o.Location.Region != "Małopolskie" || o.Location.City != "Kraków" {
		t.Errorf("Location = %+v", o.Location)
	}
	if len(o.Photos) != 1 || o.Photos[0] != "https://img.olx.pl/abc;s=1000x700" {
		t.Errorf("Photos = %v, size template should be substituted", o.Photos)
	}
}

func TestOLXParse_SkipsMalformedUnits(t *testing.T) {
	payload := `{"data": [
		{"url": "https://www.olx.pl/d/oferta/a.html", "title": "Dobra oferta"},
		{"url": "https://www.olx.pl/d/oferta/b.html", "title": ""},
		{"url": "", "title": "Bez adresu"}
	]}`

	p := parser.NewOLXParser()
	offers, err := p.Parse(payload, string(model.CategoryMieszkanie), "1")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("Parse returned %d offers, want 1 (malformed units dropped)", len(offers))
	}
	if offers[0].SubCategory != model.SubCategorySprzedaz {
		t.Errorf("SubCategory = %q, want %q (sub code 1 is sale)", offers[0].SubCategory, model.SubCategorySprzedaz)
	}
}

func TestOLXParse_MalformedPayload(t *testing.T) {
	p := parser.NewOLXParser()
	if _, err := p.Parse("{not json", string(model.CategoryMieszkanie), "0"); err == nil {
		t.Error("Parse expected error for malformed JSON, got nil")
	}
}

func TestOLXParse_UnknownSubCode(t *testing.T) {
	payload := `{"data": [{"url": "https://www.olx.pl/d/oferta/a.html", "title": "Oferta"}]}`

	p := parser.NewOLXParser()
	offers, err := p.Parse(payload, string(model.CategoryMieszkanie), "9")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("Parse returned %d offers, want 1", len(offers))
	}
	if offers[0].SubCategory != "" {
		t.Errorf("SubCategory = %q, want empty for unknown sub code", offers[0].SubCategory)
	}
}

func TestOLXParse_UnknownParamCodesDropSilently(t *testing.T) {
	payload := `{"data": [{
		"url": "https://www.olx.pl/d/oferta/a.html",
		"title": "Oferta",
		"params": [
			{"key": "floor", "value": {"label": "Suterena", "key": "floor_-1"}},
			{"key": "rooms", "value": {"label": "5 pokoi", "key": "five"}},
			{"key": "furniture", "value": {"key": "maybe"}}
		]
	}]}`

	p := parser.NewOLXParser()
	offers, err := p.Parse(payload, string(model.CategoryMieszkanie), "0")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	o := offers[0]
	if o.Floor != nil || o.Rooms != nil || o.Furniture != nil {
		t.Errorf("unknown vocabulary should map to nil: floor=%v rooms=%v furniture=%v",
			o.Floor, o.Rooms, o.Furniture)
	}
}
