package merge

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/yabtel/telemetria/internal/merge/service"
	telemetry "github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/pkg/repository"
)

var Module = fx.Module("merge",
	fx.Provide(
		func(db *gorm.DB) repository.Repository[telemetry.MergedOTT] {
			return repository.ProvideStore[telemetry.MergedOTT](db)
		},
		func(db *gorm.DB) repository.Repository[telemetry.MergedDVB] {
			return repository.ProvideStore[telemetry.MergedDVB](db)
		},
		func(db *gorm.DB) repository.Repository[telemetry.MergedStopCatchup] {
			return repository.ProvideStore[telemetry.MergedStopCatchup](db)
		},
		func(db *gorm.DB) repository.Repository[telemetry.MergedEndCatchup] {
			return repository.ProvideStore[telemetry.MergedEndCatchup](db)
		},
		func(db *gorm.DB) repository.Repository[telemetry.MergedStopVOD] {
			return repository.ProvideStore[telemetry.MergedStopVOD](db)
		},
		func(db *gorm.DB) repository.Repository[telemetry.MergedEndVOD] {
			return repository.ProvideStore[telemetry.MergedEndVOD](db)
		},
	),
	fx.Provide(service.New),
)
