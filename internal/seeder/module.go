package seeder

import "go.uber.org/fx"

// Module provides the Seeder for CLI commands.
var Module = fx.Provide(New)
