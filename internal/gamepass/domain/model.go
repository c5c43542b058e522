package domain

import (
	"context"

	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
)

// Record is one row of the aggregated pass listing. A record is either a
// populated pass, a placeholder (all nullable fields nil) or an error record.
type Record struct {
	UniverseID universedomain.UniverseID `json:"universeId"`
	ID         *int64                    `json:"id"`
	Name       *string                   `json:"name"`
	Price      *float64                  `json:"price"`
	ProductID  *int64                    `json:"productId"`
	Link       *string                   `json:"link"`
	Error      string                    `json:"error,omitempty"`
}

// HasID reports whether the record carries a pass identifier.
func (r Record) HasID() bool {
	return r.ID != nil
}

// PlaceholderRecord represents a universe that has no passes.
func PlaceholderRecord(universeID universedomain.UniverseID) Record {
	return Record{UniverseID: universeID}
}

// ErrorRecord represents a universe whose fetch did not complete.
func ErrorRecord(universeID universedomain.UniverseID, code string) Record {
	if code == "" {
		code = CodeUnknown
	}
	return Record{
		UniverseID: universeID,
		Error:      "universe_fetch_failed:" + code,
	}
}

// Fetcher lists the passes of one universe. It never fails; upstream problems
// are folded into the returned Outcome.
//
//go:generate mockgen -source=model.go -destination=../mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	Fetch(ctx context.Context, universeID universedomain.UniverseID) Outcome
}
