package cv

import "go.uber.org/fx"

var Module = fx.Module("cv",
	fx.Provide(NewClient),
)
