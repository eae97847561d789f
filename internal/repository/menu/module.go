package menu

import "go.uber.org/fx"

// Module provides the menu repository to Fx.
var Module = fx.Provide(NewRepository)
