package receipt

import (
	"go.uber.org/fx"

	"github.com/openlotlabs/torii/internal/receipt/render"
)

var Module = fx.Module("receipt.render",
	fx.Provide(render.NewRenderer),
)
