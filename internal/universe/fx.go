package universe

import (
	"github.com/smallbiznis/gamepasses/internal/universe/service"
	"go.uber.org/fx"
)

var Module = fx.Module("universe.discoverer",
	fx.Provide(service.New),
)
