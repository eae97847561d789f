package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/messaging"
	ordersvc "github.com/hashmato/pos/internal/service/order"
	"github.com/hashmato/pos/internal/worker"
)

var workerTracer = otel.Tracer("github.com/hashmato/pos/worker/order")

// Module registers order event handlers with the worker engine.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventsHandler consumes the order event stream. Created orders are
// logged as kitchen tickets (the receipt printer collaborator picks these up
// downstream); status changes are logged for the audit trail.
func NewOrderEventsHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch event.Type {
		case ordersvc.EventOrderCreated:
			logger.Info("kitchen ticket queued",
				zap.Int64("order_id", event.OrderID),
				zap.String("source", event.Source),
			)
		case ordersvc.EventOrderStatusChanged:
			logger.Info("order status advanced",
				zap.Int64("order_id", event.OrderID),
				zap.String("status", event.Status),
			)
		default:
			logger.Warn("unknown order event type", zap.String("type", event.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
