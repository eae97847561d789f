package menu

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/dto"
	"github.com/hashmato/pos/internal/entity"
	"github.com/hashmato/pos/internal/presentation/http/response"
	service "github.com/hashmato/pos/internal/service/menu"
	"github.com/hashmato/pos/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/hashmato/pos/transport/http/menu")

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	svc     *service.Service
	uploads config.Uploads
}

// NewHandler constructs a menu Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, uploads: cfg.Uploads}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/menu")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/sync", h.sync)
	e.POST("/upload", h.upload)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.list")
	defer span.End()

	items, err := h.svc.ListAvailable(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(items)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		ImageURL string  `json:"image_url"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.create")
	defer span.End()

	item, err := h.svc.Create(ctx, payload.Name, payload.Price, payload.ImageURL)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(map[string]any{
		"id":     item.ID,
		"status": "created",
	}).Build()
}

func (h *Handler) sync(c echo.Context) error {
	b := response.New(c)

	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid date format, use RFC3339", errorbank.WithCause(err))).Build()
		}
		utc := parsed.UTC()
		since = &utc
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.sync")
	defer span.End()

	items, err := h.svc.ListSince(ctx, since)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(items)).Build()
}

// upload stores one multipart image field and returns its public URL under
// /uploads/.
func (h *Handler) upload(c echo.Context) error {
	b := response.New(c)

	file, err := c.FormFile("file")
	if err != nil {
		return b.WithError(errorbank.BadRequest("no file field found", errorbank.WithCause(err))).Build()
	}
	if file.Size > h.uploads.MaxBytes {
		return b.WithError(errorbank.BadRequest("file size exceeds upload limit")).Build()
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return b.WithError(errorbank.BadRequest("invalid file type, only images are allowed")).Build()
	}

	if err := os.MkdirAll(h.uploads.Dir, 0o755); err != nil {
		return b.WithError(errorbank.Internal("failed to prepare upload directory", errorbank.WithCause(err))).Build()
	}

	src, err := file.Open()
	if err != nil {
		return b.WithError(errorbank.BadRequest("failed to read file data", errorbank.WithCause(err))).Build()
	}
	defer src.Close()

	name := fmt.Sprintf("file-%d%s", time.Now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(h.uploads.Dir, name))
	if err != nil {
		return b.WithError(errorbank.Internal("failed to save file", errorbank.WithCause(err))).Build()
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, h.uploads.MaxBytes)); err != nil {
		return b.WithError(errorbank.Internal("failed to save file", errorbank.WithCause(err))).Build()
	}

	return b.WithData(map[string]string{"url": "/uploads/" + name}).Build()
}

func toDTOs(items []entity.MenuItem) []dto.MenuItemResponse {
	out := make([]dto.MenuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.MenuItemResponse{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Available: item.Available,
			ImageURL:  item.ImageURL,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return out
}
