package pricing

import (
	"go.uber.org/fx"

	"github.com/openlotlabs/torii/internal/pricing/domain"
	"github.com/openlotlabs/torii/internal/pricing/service"
)

var Module = fx.Module("pricing.resolver",
	fx.Provide(service.NewResolver),
	fx.Provide(func(r domain.Resolver) domain.Invalidator { return r }),
)
