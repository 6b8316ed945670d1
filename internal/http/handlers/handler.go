package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"easytopup/backend/internal/catalog"
	"easytopup/backend/internal/config"
	authmw "easytopup/backend/internal/http/middleware"
	"easytopup/backend/internal/integrations"
	"easytopup/backend/internal/orders"
	"easytopup/backend/internal/rate"
	"easytopup/backend/internal/store"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	store           store.Store
	catalog         *catalog.Catalog
	orders          *orders.Service
	s3              *integrations.S3Client
	cfg             *config.Config
	logger          *slog.Logger
	validator       *validator.Validate
	purchaseLimiter *rate.KeyedLimiter
}

func New(st store.Store, cat *catalog.Catalog, svc *orders.Service, s3 *integrations.S3Client, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:           st,
		catalog:         cat,
		orders:          svc,
		s3:              s3,
		cfg:             cfg,
		logger:          logger,
		validator:       validator.New(),
		purchaseLimiter: rate.NewKeyedLimiter(0.2, 3),
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if logger == nil {
		return slog.Default()
	}
	if reqID := chimw.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if login, ok := authmw.AdminLoginFromContext(r.Context()); ok {
		logger = logger.With("admin", login)
	}
	return logger
}
