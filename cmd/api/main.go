package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"easytopup/backend/internal/catalog"
	"easytopup/backend/internal/config"
	"easytopup/backend/internal/http/handlers"
	"easytopup/backend/internal/http/middleware"
	"easytopup/backend/internal/integrations"
	"easytopup/backend/internal/integrations/reloadly"
	"easytopup/backend/internal/integrations/zitopay"
	"easytopup/backend/internal/logging"
	"easytopup/backend/internal/orders"
	"easytopup/backend/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "api")
	slog.SetDefault(logger)

	ctx := context.Background()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logger.Error("catalog error", "error", err)
		os.Exit(1)
	}

	var orderStore store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db error", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		orderStore = pg
	} else {
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			logger.Error("store error", "error", err)
			os.Exit(1)
		}
		orderStore = fs
	}

	gateway := zitopay.NewClient(zitopay.Config{
		BaseURL: cfg.Zitopay.BaseURL,
		APIKey:  cfg.Zitopay.APIKey,
	}, nil, logger)

	tokenManager := reloadly.NewTokenManager(reloadly.TokenManagerConfig{
		ClientID:     cfg.Reloadly.ClientID,
		ClientSecret: cfg.Reloadly.ClientSecret,
		AuthURL:      cfg.Reloadly.AuthURL,
		Audience:     cfg.Reloadly.Audience,
	}, nil)
	topups := reloadly.NewClient(reloadly.Config{
		TopupURL: cfg.Reloadly.TopupURL,
	}, tokenManager, nil, logger)

	svc := orders.NewService(orders.ServiceConfig{
		BaseURL:     cfg.BaseURL,
		Currency:    cfg.Currency,
		OperatorIDs: cfg.Reloadly.OperatorIDs,
	}, orderStore, cat, gateway, topups, logger)

	var s3Client *integrations.S3Client
	if cfg.S3.Bucket != "" {
		s3Client, err = integrations.NewS3(ctx, cfg.S3)
		if err != nil {
			logger.Error("s3 error", "error", err)
			os.Exit(1)
		}
	}

	h := handlers.New(orderStore, cat, svc, s3Client, cfg, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/bundles", h.ListBundles)
	r.Post("/api/purchase", h.Purchase)
	r.Post("/api/webhooks/zitopay", h.ZitopayWebhook)
	r.Get("/api/orders/{id}", h.GetOrder)
	r.Get("/media/bundles/*", h.BundleMedia)

	r.Post("/auth/admin", h.AuthAdmin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminAuthMiddleware(cfg.JWTSecret))
		r.Get("/admin/orders", h.ListAdminOrders)
		r.Get("/admin/orders/{id}", h.GetAdminOrder)
		r.Get("/admin/stats", h.AdminStats)
		r.Post("/admin/media/presign", h.PresignMedia)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.Info("api_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown", "service", "api")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Zitopay-Signature")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
