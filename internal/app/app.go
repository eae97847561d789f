package app

import (
	"go.uber.org/fx"

	"github.com/hashmato/pos/internal/broadcast"
	"github.com/hashmato/pos/internal/cache"
	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/database"
	"github.com/hashmato/pos/internal/logger"
	"github.com/hashmato/pos/internal/messaging"
	"github.com/hashmato/pos/internal/observability"
	repositorymenu "github.com/hashmato/pos/internal/repository/menu"
	repositoryorder "github.com/hashmato/pos/internal/repository/order"
	repositoryqueue "github.com/hashmato/pos/internal/repository/queue"
	httpserver "github.com/hashmato/pos/internal/server/http"
	servicemenu "github.com/hashmato/pos/internal/service/menu"
	serviceorder "github.com/hashmato/pos/internal/service/order"
	transporthttp "github.com/hashmato/pos/internal/transport/http"
	"github.com/hashmato/pos/internal/worker"
	workerorder "github.com/hashmato/pos/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	broadcast.Module,
	repositorymenu.Module,
	repositoryorder.Module,
	repositoryqueue.Module,
	servicemenu.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
