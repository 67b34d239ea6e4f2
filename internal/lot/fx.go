package lot

import (
	"go.uber.org/fx"

	"github.com/openlotlabs/torii/internal/lot/service"
)

var Module = fx.Module("lot.service",
	fx.Provide(service.NewService),
)
