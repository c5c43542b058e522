package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/gamepasses/internal/aggregate/domain"
	"github.com/smallbiznis/gamepasses/internal/config"
	gamepassdomain "github.com/smallbiznis/gamepasses/internal/gamepass/domain"
	obsmetrics "github.com/smallbiznis/gamepasses/internal/observability/metrics"
	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Params struct {
	fx.In

	Discoverer universedomain.Discoverer
	Fetcher    gamepassdomain.Fetcher
	Tuning     *config.AggregateConfigHolder
	Log        *zap.Logger
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	discoverer universedomain.Discoverer
	fetcher    gamepassdomain.Fetcher
	tuning     *config.AggregateConfigHolder
	log        *zap.Logger
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		discoverer: p.Discoverer,
		fetcher:    p.Fetcher,
		tuning:     p.Tuning,
		log:        p.Log.Named("aggregate.service"),
		metrics:    p.Metrics,
	}
}

// Aggregate discovers the user's universes and fetches their passes with
// bounded concurrency. Records are emitted in discovery order regardless of
// completion order.
func (s *Service) Aggregate(ctx context.Context, userID int64) (*domain.Result, error) {
	universes, err := s.discoverer.Discover(ctx, userID)
	if err != nil {
		s.log.Warn("discovery failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, &domain.Failure{Err: err}
	}
	if universes == nil {
		universes = []universedomain.UniverseID{}
	}

	outcomes := s.fetchAll(ctx, universes)

	passes := make([]gamepassdomain.Record, 0, len(universes))
	var total, empty, failed int
	for i, outcome := range outcomes {
		switch outcome.Kind {
		case gamepassdomain.OutcomeEmpty:
			empty++
		case gamepassdomain.OutcomeFailed:
			failed++
		}
		s.metrics.RecordUniverseOutcome(ctx, outcome.Kind.String())
		for _, rec := range mapOutcome(universes[i], outcome) {
			if rec.HasID() {
				total++
			}
			passes = append(passes, rec)
		}
	}

	s.log.Info("passes aggregated",
		zap.Int64("user_id", userID),
		zap.Int("universes", len(universes)),
		zap.Int("total", total),
		zap.Int("empty", empty),
		zap.Int("failed", failed),
	)

	return &domain.Result{
		UserID:    userID,
		Universes: universes,
		Total:     total,
		Passes:    passes,
	}, nil
}

func (s *Service) fetchAll(ctx context.Context, universes []universedomain.UniverseID) []gamepassdomain.Outcome {
	outcomes := make([]gamepassdomain.Outcome, len(universes))

	var g errgroup.Group
	g.SetLimit(fanOutLimit(s.tuning.Get().Concurrency))
	for i, universeID := range universes {
		g.Go(func() error {
			outcomes[i] = s.fetchOne(ctx, universeID)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// fanOutLimit keeps the errgroup limit positive; SetLimit(0) would block every Go call.
func fanOutLimit(concurrency int) int {
	if concurrency < 1 {
		return 1
	}
	return concurrency
}

func (s *Service) fetchOne(ctx context.Context, universeID universedomain.UniverseID) (outcome gamepassdomain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("universe fetch panicked",
				zap.Int64("universe_id", int64(universeID)),
				zap.Error(fmt.Errorf("%v", r)),
			)
			outcome = gamepassdomain.Failed(gamepassdomain.CodeUnknown)
		}
	}()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return gamepassdomain.Failed(gamepassdomain.CodeDeadlineExceeded)
		}
		return gamepassdomain.Failed(gamepassdomain.CodeCanceled)
	}
	return s.fetcher.Fetch(ctx, universeID)
}

func mapOutcome(universeID universedomain.UniverseID, outcome gamepassdomain.Outcome) []gamepassdomain.Record {
	switch outcome.Kind {
	case gamepassdomain.OutcomeSuccess:
		return outcome.Records
	case gamepassdomain.OutcomeFailed:
		return []gamepassdomain.Record{gamepassdomain.ErrorRecord(universeID, outcome.Code)}
	default:
		return []gamepassdomain.Record{gamepassdomain.PlaceholderRecord(universeID)}
	}
}
