package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/gamepasses/internal/config"
	"github.com/smallbiznis/gamepasses/internal/gamepass/domain"
	obsmetrics "github.com/smallbiznis/gamepasses/internal/observability/metrics"
	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
	"github.com/smallbiznis/gamepasses/internal/upstream"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	endpointPrimary  = "primary"
	endpointFallback = "fallback"
)

// JSONGetter is the subset of the upstream client the fetcher needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, endpoint, rawURL string, out any) error
}

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Upstream *upstream.Client
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Endpoints holds the base URLs the fetcher reads from and links to.
type Endpoints struct {
	PassesBaseURL   string
	FallbackBaseURL string
	LinkBaseURL     string
}

type Service struct {
	client    JSONGetter
	endpoints Endpoints
	log       *zap.Logger
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Fetcher {
	return NewFetcher(p.Upstream, Endpoints{
		PassesBaseURL:   p.Cfg.Upstream.PassesBaseURL,
		FallbackBaseURL: p.Cfg.Upstream.FallbackBaseURL,
		LinkBaseURL:     p.Cfg.Upstream.LinkBaseURL,
	}, p.Log, p.Metrics)
}

func NewFetcher(client JSONGetter, endpoints Endpoints, log *zap.Logger, metrics *obsmetrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	endpoints.PassesBaseURL = strings.TrimRight(endpoints.PassesBaseURL, "/")
	endpoints.FallbackBaseURL = strings.TrimRight(endpoints.FallbackBaseURL, "/")
	endpoints.LinkBaseURL = strings.TrimRight(endpoints.LinkBaseURL, "/")
	return &Service{
		client:    client,
		endpoints: endpoints,
		log:       log.Named("gamepass.fetcher"),
		metrics:   metrics,
	}
}

type listing struct {
	Data []json.RawMessage `json:"data"`
}

// Fetch reads the primary listing and only consults the fallback listing when
// the primary produced no entries at all.
func (s *Service) Fetch(ctx context.Context, universeID universedomain.UniverseID) domain.Outcome {
	items, err := s.list(ctx, endpointPrimary, s.primaryURL(universeID), universeID)
	if err != nil && ctx.Err() != nil {
		return domain.Failed(contextCode(ctx))
	}

	if len(items) == 0 {
		s.metrics.RecordFallbackUsed(ctx)
		items, err = s.list(ctx, endpointFallback, s.fallbackURL(universeID), universeID)
		if err != nil && ctx.Err() != nil {
			return domain.Failed(contextCode(ctx))
		}
	}

	return domain.Success(normalizeItems(universeID, items, s.endpoints.LinkBaseURL))
}

// list returns the raw entries of one listing. Upstream errors are logged and
// reported alongside an empty result; callers treat them as "no items".
func (s *Service) list(ctx context.Context, endpoint, rawURL string, universeID universedomain.UniverseID) ([]json.RawMessage, error) {
	var body listing
	if err := s.client.GetJSON(ctx, endpoint, rawURL, &body); err != nil {
		fields := []zap.Field{
			zap.String("endpoint", endpoint),
			zap.Int64("universe_id", int64(universeID)),
			zap.Error(err),
		}
		if status, ok := upstream.StatusCode(err); ok {
			fields = append(fields, zap.Int("status", status))
		}
		s.log.Warn("pass listing unavailable", fields...)
		return nil, err
	}
	return body.Data, nil
}

func (s *Service) primaryURL(universeID universedomain.UniverseID) string {
	return fmt.Sprintf("%s/game-passes/v1/universes/%d/game-passes?pageSize=100&passView=Full",
		s.endpoints.PassesBaseURL, universeID)
}

func (s *Service) fallbackURL(universeID universedomain.UniverseID) string {
	return fmt.Sprintf("%s/v1/games/%d/game-passes?limit=100&sortOrder=Asc",
		s.endpoints.FallbackBaseURL, universeID)
}

func contextCode(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.CodeDeadlineExceeded
	}
	return domain.CodeCanceled
}
