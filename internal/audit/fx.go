package audit

import (
	"go.uber.org/fx"

	"github.com/openlotlabs/torii/internal/audit/repository"
	"github.com/openlotlabs/torii/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
