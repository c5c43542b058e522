package upstream

import (
	"github.com/smallbiznis/gamepasses/internal/config"
	obsmetrics "github.com/smallbiznis/gamepasses/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("upstream.client",
	fx.Provide(NewFromConfig),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewFromConfig(p Params) *Client {
	return NewClient(Options{
		UserAgent:      p.Cfg.Upstream.UserAgent,
		ConnectTimeout: p.Cfg.Upstream.ConnectTimeout,
		ReadTimeout:    p.Cfg.Upstream.ReadTimeout,
	}, p.Log, p.Metrics)
}
