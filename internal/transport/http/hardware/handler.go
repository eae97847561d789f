package hardware

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/presentation/http/response"
	"github.com/hashmato/pos/pkg/errorbank"
)

// Handler exposes the fire-and-forget peripheral stubs and the update feed.
// These hold no state; the desktop client performs the actual hardware work.
type Handler struct {
	app    config.App
	logger *zap.Logger
}

// NewHandler constructs a hardware Handler.
func NewHandler(cfg config.Config, logger *zap.Logger) *Handler {
	return &Handler{app: cfg.App, logger: logger}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/print/:order_id", h.printReceipt)
	e.POST("/drawer/open", h.openDrawer)
	e.GET("/version", h.version)
}

func (h *Handler) printReceipt(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	h.logger.Info("print job queued", zap.Int64("order_id", orderID))

	return b.WithData(map[string]any{
		"order_id": orderID,
		"status":   "print job queued",
	}).Build()
}

func (h *Handler) openDrawer(c echo.Context) error {
	return response.New(c).WithData(map[string]string{
		"status": "ok",
		"note":   "client should trigger cash drawer",
	}).Build()
}

func (h *Handler) version(c echo.Context) error {
	return response.New(c).WithData(map[string]string{
		"version": h.app.Version,
		"url":     h.app.UpdateURL,
	}).Build()
}
