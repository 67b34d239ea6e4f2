package gate

import (
	"go.uber.org/fx"

	"github.com/openlotlabs/torii/internal/gate/service"
)

var Module = fx.Module("gate.service",
	fx.Provide(service.NewService),
)
