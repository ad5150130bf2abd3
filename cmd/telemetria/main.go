package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/yabtel/telemetria/internal/analytics"
	"github.com/yabtel/telemetria/internal/cache"
	"github.com/yabtel/telemetria/internal/clock"
	"github.com/yabtel/telemetria/internal/config"
	"github.com/yabtel/telemetria/internal/cv"
	"github.com/yabtel/telemetria/internal/joblock"
	"github.com/yabtel/telemetria/internal/merge"
	"github.com/yabtel/telemetria/internal/migration"
	"github.com/yabtel/telemetria/internal/observability"
	"github.com/yabtel/telemetria/internal/scheduler"
	"github.com/yabtel/telemetria/internal/server"
	"github.com/yabtel/telemetria/internal/telemetry"
	"github.com/yabtel/telemetria/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		joblock.Module,
		migration.Module,

		// Functional domains
		cv.Module,
		telemetry.Module,
		merge.Module,
		analytics.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
