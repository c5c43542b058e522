package domain

import (
	"context"
	"errors"
)

// UniverseID identifies one catalog entry (a published game).
type UniverseID int64

// Discoverer lists every public universe published by a user, in pagination order.
//
//go:generate mockgen -source=model.go -destination=../mocks/mock_discoverer.go -package=mocks
type Discoverer interface {
	Discover(ctx context.Context, userID int64) ([]UniverseID, error)
}

var ErrPageLimitExceeded = errors.New("discovery_page_limit_exceeded")
