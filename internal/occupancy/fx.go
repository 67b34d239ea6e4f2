package occupancy

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("occupancy.snapshot",
	fx.Provide(DefaultConfig),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker) {
	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go worker.RunForever(loopCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
