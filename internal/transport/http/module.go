package http

import (
	"go.uber.org/fx"

	hardwaretransport "github.com/hashmato/pos/internal/transport/http/hardware"
	menutransport "github.com/hashmato/pos/internal/transport/http/menu"
	ordertransport "github.com/hashmato/pos/internal/transport/http/order"
	queuetransport "github.com/hashmato/pos/internal/transport/http/queue"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	queuetransport.Module,
	menutransport.Module,
	hardwaretransport.Module,
)
