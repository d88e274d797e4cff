// Package parser converts staged raw payloads into canonical offer
// candidates.
//
// Each external site has one Strategy. Parsing is pure — no I/O — and never
// partially fails: a listing unit missing its mandatory fields (title,
// detail URL) is dropped silently and the rest of the page proceeds.
// Source vocabulary (floor codes, room words, yes/no tokens) is mapped to
// the canonical enums; unknown codes map to the empty/none value, never an
// error.
package parser

import (
	"fmt"

	"estatehub/pipeline-service/internal/model"
)

// Strategy parses one staged payload of one source into zero or more offer
// candidates. category and subCategory are the raw values recorded when the
// page was captured.
type Strategy interface {
	Parse(payload, category, subCategory string) ([]model.ParsedOffer, error)
}

// ForSource returns the strategy registered for the given source.
func ForSource(source model.Source) (Strategy, error) {
	switch source {
	case model.SourceOLX:
		return NewOLXParser(), nil
	case model.SourceOtodom:
		return NewOtodomParser(), nil
	}
	return nil, fmt.Errorf("no parser registered for source %q", source)
}
