// Package staging implements the durable log of scraped payloads.
//
// Every successful fetch is appended as one RawCapture. The payload is
// immutable once written; only the lifecycle stage mutates, and only along
// the allowed path:
//
//	RAW ──► PARSED ──► SENT
//
// SENT is terminal. Captures are never deleted by the pipeline itself;
// purging parsed captures is an explicit maintenance operation.
package staging

import (
	"fmt"
	"time"

	"estatehub/pipeline-service/internal/model"
)

// Stage values mirror the stage field stored with each capture.
type Stage string

const (
	StageRaw    Stage = "RAW"
	StageParsed Stage = "PARSED"
	StageSent   Stage = "SENT"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Stage][]Stage{
	StageRaw:    {StageParsed},
	StageParsed: {StageSent},
	// SENT is terminal — no outgoing transitions
}

// ParseStage converts a raw string to a Stage, returning an error for
// unknown values.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	switch st {
	case StageRaw, StageParsed, StageSent:
		return st, nil
	}
	return "", fmt.Errorf("unknown capture stage %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to Stage) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal stage — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// RawCapture is one fetched page or API response from one source.
type RawCapture struct {
	ID          string       `bson:"_id,omitempty"`
	Source      model.Source `bson:"source"`
	Category    string       `bson:"category"`
	SubCategory string       `bson:"sub_category"`
	Payload     string       `bson:"payload"`
	Stage       Stage        `bson:"stage"`
	CreatedAt   time.Time    `bson:"created_at"`
}
