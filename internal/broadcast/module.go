package broadcast

import "go.uber.org/fx"

// Module provides the subscriber hub and the snapshot broadcaster.
var Module = fx.Provide(
	NewHub,
	NewBroadcaster,
)
