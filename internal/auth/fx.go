package auth

import "go.uber.org/fx"

var Module = fx.Module("auth.resolver",
	fx.Provide(NewResolver),
)
