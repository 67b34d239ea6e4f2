package payment

import (
	"go.uber.org/fx"

	"github.com/openlotlabs/torii/internal/payment/adapters"
	"github.com/openlotlabs/torii/internal/payment/repository"
	"github.com/openlotlabs/torii/internal/payment/service"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(adapters.BuildRegistry),
	fx.Provide(service.NewService),
)
