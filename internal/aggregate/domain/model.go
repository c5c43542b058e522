package domain

import (
	"context"

	gamepassdomain "github.com/smallbiznis/gamepasses/internal/gamepass/domain"
	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
)

// Result is the aggregated pass listing of one user.
type Result struct {
	UserID    int64                       `json:"userId"`
	Universes []universedomain.UniverseID `json:"universes"`
	Total     int                         `json:"total"`
	Passes    []gamepassdomain.Record     `json:"passes"`
}

// Service builds the aggregated listing. Only discovery failures are returned
// as errors; per-universe problems are reported inside the result.
//
//go:generate mockgen -source=model.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	Aggregate(ctx context.Context, userID int64) (*Result, error)
}
