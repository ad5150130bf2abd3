package analytics

import (
	"go.uber.org/fx"

	"github.com/yabtel/telemetria/internal/analytics/service"
)

var Module = fx.Module("analytics",
	fx.Provide(service.New),
)
