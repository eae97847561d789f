package migration

import "go.uber.org/fx"

// Module provides the Migrator for CLI commands.
var Module = fx.Provide(New)
