package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mediatag/config"
	"mediatag/core/catalog"
	"mediatag/core/geocode"
	"mediatag/core/timestamp"
	"mediatag/logger"
	"mediatag/repository"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})

	storePath := filepath.Join(cfg.MediaDir, cfg.StoreFilename)
	repo := repository.NewFileCollectionRepository(storePath, cfg.BackupDir)
	resolver := timestamp.NewResolver(timestamp.NewFFprobeProber(cfg.FFprobePath, cfg.ProbeTimeout))

	cat, err := catalog.Open(cfg.MediaDir, repo, resolver)
	if err != nil {
		logger.Fatal("failed to open catalog", logger.ErrorField(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cat.Watch(ctx); err != nil {
		logger.Warn("media folder watcher unavailable", logger.ErrorField(err))
	}

	geocoder := geocode.NewClient(cfg.GeocodeURL, cfg.GeocodeTimeout)
	if cfg.GeocodeURL != "" {
		go cat.EnrichLocations(ctx, geocoder)
	}

	apiHandler := NewAPIHandler(cat, geocoder, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/api/catalog", apiHandler.GetCatalogHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog/rescan", apiHandler.RescanHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/catalog/folders", apiHandler.SetFolderHandler).Methods(http.MethodPut)

	router.HandleFunc("/api/items/{key}", apiHandler.GetItemHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/items/{key}/neighbor", apiHandler.NeighborHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/items/{key}/text", apiHandler.SetTextHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/items/{key}/timestamp", apiHandler.SetManualTimestampHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/items/{key}/attrs", apiHandler.SetAttrsHandler).Methods(http.MethodPut)

	router.HandleFunc("/api/items/{key}/annotations", apiHandler.GetAnnotationsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/items/{key}/annotations", apiHandler.AddAnnotationHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/items/{key}/session", apiHandler.SessionHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/items/{key}/annotations/active", apiHandler.RemoveActiveAnnotationHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/duplicates", apiHandler.GetDuplicatesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/duplicates/resolve", apiHandler.ResolveDuplicatesHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/playback/{key}", apiHandler.PlaybackSocketHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", logger.ErrorField(err))
		}
		if err := cat.Save(); err != nil {
			logger.Error("final store save failed", logger.ErrorField(err))
		}
	}()

	logger.Info("server listening",
		logger.String("addr", server.Addr), logger.String("mediaDir", cfg.MediaDir))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", logger.ErrorField(err))
	}
}
