package telemetry

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/yabtel/telemetria/internal/cv"
	"github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/internal/telemetry/service"
	"github.com/yabtel/telemetria/pkg/repository"
)

var Module = fx.Module("telemetry",
	fx.Provide(func(db *gorm.DB) repository.Repository[domain.TelemetryEvent] {
		return repository.ProvideStore[domain.TelemetryEvent](db)
	}),
	fx.Provide(func(client *cv.Client) service.Upstream { return client }),
	fx.Provide(service.New),
)
