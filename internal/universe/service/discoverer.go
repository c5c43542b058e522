package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/smallbiznis/gamepasses/internal/config"
	"github.com/smallbiznis/gamepasses/internal/universe/domain"
	"github.com/smallbiznis/gamepasses/internal/upstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	endpointDiscovery = "discovery"
	pageLimit         = 50
)

// JSONGetter is the subset of the upstream client the discoverer needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, endpoint, rawURL string, out any) error
}

type Params struct {
	fx.In

	Cfg      config.Config
	Tuning   *config.AggregateConfigHolder
	Log      *zap.Logger
	Upstream *upstream.Client
}

type Service struct {
	client  JSONGetter
	baseURL string
	tuning  *config.AggregateConfigHolder
	log     *zap.Logger
}

func New(p Params) domain.Discoverer {
	return NewDiscoverer(p.Upstream, p.Cfg.Upstream.GamesBaseURL, p.Tuning, p.Log)
}

func NewDiscoverer(client JSONGetter, baseURL string, tuning *config.AggregateConfigHolder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		tuning:  tuning,
		log:     log.Named("universe.discoverer"),
	}
}

type gamesPage struct {
	Data           []json.RawMessage `json:"data"`
	NextPageCursor *string           `json:"nextPageCursor"`
}

type gameItem struct {
	ID *int64 `json:"id"`
}

// Discover follows nextPageCursor until the upstream stops returning one.
// Upstream failures are returned wrapped but otherwise untouched.
func (s *Service) Discover(ctx context.Context, userID int64) ([]domain.UniverseID, error) {
	maxPages := s.tuning.Get().MaxDiscoveryPages

	universes := make([]domain.UniverseID, 0, pageLimit)
	seenCursors := map[string]struct{}{}

	var cursor string
	for page := 1; ; page++ {
		if maxPages > 0 && page > maxPages {
			s.log.Warn("discovery page limit reached",
				zap.Int64("user_id", userID),
				zap.Int("max_pages", maxPages),
			)
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrPageLimitExceeded)
		}

		var body gamesPage
		if err := s.client.GetJSON(ctx, endpointDiscovery, s.pageURL(userID, cursor), &body); err != nil {
			return nil, fmt.Errorf("discover universes for user %d: %w", userID, err)
		}

		universes = append(universes, extractUniverseIDs(body.Data)...)

		if body.NextPageCursor == nil || strings.TrimSpace(*body.NextPageCursor) == "" {
			break
		}
		next := *body.NextPageCursor
		if _, seen := seenCursors[next]; seen || next == cursor {
			s.log.Warn("discovery cursor repeated, stopping pagination",
				zap.Int64("user_id", userID),
				zap.Int("page", page),
			)
			break
		}
		seenCursors[next] = struct{}{}
		cursor = next
	}

	s.log.Debug("universes discovered",
		zap.Int64("user_id", userID),
		zap.Int("count", len(universes)),
	)
	return universes, nil
}

func (s *Service) pageURL(userID int64, cursor string) string {
	q := url.Values{}
	q.Set("accessFilter", "Public")
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("sortOrder", "Asc")
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s/v2/users/%d/games?%s", s.baseURL, userID, q.Encode())
}

// extractUniverseIDs keeps page order and silently drops entries that are not
// objects or carry no id.
func extractUniverseIDs(items []json.RawMessage) []domain.UniverseID {
	out := make([]domain.UniverseID, 0, len(items))
	for _, raw := range items {
		var item gameItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if item.ID == nil {
			continue
		}
		out = append(out, domain.UniverseID(*item.ID))
	}
	return out
}
