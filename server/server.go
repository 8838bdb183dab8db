package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otakuwave/cache"
	"otakuwave/config"
	"otakuwave/core/auth"
	"otakuwave/core/catalog"
	"otakuwave/core/library"
	"otakuwave/db"
	"otakuwave/logger"
	"otakuwave/repository"
	"otakuwave/storage"

	"github.com/gorilla/mux"
)

// corsMiddleware allows the UI to be served from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter registers every route. webAppDir may be empty to skip the UI.
func NewRouter(h *APIHandler, webAppDir string) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Catalog
	router.HandleFunc("/api/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id:[0-9]+}", h.GetTrackHandler).Methods(http.MethodGet)

	// Admin
	router.HandleFunc("/api/admin/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/tracks", h.AuthMiddleware(h.ListAdminTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/tracks", h.AuthMiddleware(h.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/tracks/{id:[0-9]+}", h.AuthMiddleware(h.UpdateTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/admin/tracks/{id:[0-9]+}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.PathPrefix("/api/").HandlerFunc(NotFoundHandler)

	// Player session
	router.HandleFunc("/ws/player", h.PlayerWSHandler)

	// Stored binaries
	router.Handle(storage.PublicPathPrefix+"{bucket}/{object:.+}", NewStorageHandler(h.objects)).
		Methods(http.MethodGet, http.MethodHead)

	// Frontend UI serving
	if webAppDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(webAppDir)))
	}
	return router
}

// Start connects every backend, serves HTTP and blocks until SIGINT or
// SIGTERM.
func Start(cfg *config.Config) error {
	store, err := storage.InitMinio(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize MinIO: %w", err)
	}

	if err := db.ConnectDB(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseDB()

	if err := db.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		return fmt.Errorf("failed to connect GORM: %w", err)
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	lib := library.NewClient(repository.NewSQLTrackRepository(db.DB), store, library.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		AudioBucket:   cfg.AudioBucket,
		CoverBucket:   cfg.CoverBucket,
		DefaultCover:  config.DefaultCoverURL,
	})

	// The cache is optional: the server runs without Redis.
	if cfg.TrackCacheTTL > 0 {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis unavailable, track list cache disabled", logger.ErrorField(err))
		} else {
			defer cache.CloseRedis()
			lib.WithCache(cache.NewTrackCache(cache.RedisClient, cfg.TrackCacheTTL))
		}
	}

	h := NewAPIHandler(
		lib,
		catalog.New(lib),
		repository.NewGormAdminRepository(db.GormDB),
		auth.NewTokenManager(cfg.JWTSecret, cfg.JWTLifetime),
		store,
		cfg,
	)

	server := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     NewRouter(h, cfg.WebAppDir),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.ListenAddr),
			logger.String("publicBaseURL", cfg.PublicBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
