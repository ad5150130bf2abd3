package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/yabtel/telemetria/internal/config"
	"github.com/yabtel/telemetria/internal/telemetry/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Non-postgres dialects (mysql, sqlite for local development)
		// fall back to schema sync from the models.
		return conn.AutoMigrate(
			&domain.TelemetryEvent{},
			&domain.MergedOTT{},
			&domain.MergedDVB{},
			&domain.MergedStopCatchup{},
			&domain.MergedEndCatchup{},
			&domain.MergedStopVOD{},
			&domain.MergedEndVOD{},
		)
	}),
)
