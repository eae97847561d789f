package queue

import "go.uber.org/fx"

// Module provides the queue repository to Fx.
var Module = fx.Provide(NewRepository)
