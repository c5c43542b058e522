package main

import (
	"github.com/smallbiznis/gamepasses/internal/aggregate"
	"github.com/smallbiznis/gamepasses/internal/config"
	"github.com/smallbiznis/gamepasses/internal/gamepass"
	"github.com/smallbiznis/gamepasses/internal/observability"
	"github.com/smallbiznis/gamepasses/internal/ratelimit"
	"github.com/smallbiznis/gamepasses/internal/server"
	"github.com/smallbiznis/gamepasses/internal/universe"
	"github.com/smallbiznis/gamepasses/internal/upstream"
	"go.uber.org/fx"
)

func main() {
	fx.New(options()...).Run()
}

func options() []fx.Option {
	return []fx.Option{
		// Core Infrastructure
		config.Module,
		observability.Module,
		upstream.Module,

		// Functional Domains
		universe.Module,
		gamepass.Module,
		aggregate.Module,

		ratelimit.Module,
		server.Module,
	}
}
