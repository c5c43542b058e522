package gamepass

import (
	"github.com/smallbiznis/gamepasses/internal/gamepass/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gamepass.fetcher",
	fx.Provide(service.New),
)
