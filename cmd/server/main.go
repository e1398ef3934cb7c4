package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pixelmark/pixelmark/backend-go/internal/asset"
	"github.com/pixelmark/pixelmark/backend-go/internal/auth"
	"github.com/pixelmark/pixelmark/backend-go/internal/config"
	"github.com/pixelmark/pixelmark/backend-go/internal/dataset"
	"github.com/pixelmark/pixelmark/backend-go/internal/db"
	mw "github.com/pixelmark/pixelmark/backend-go/internal/middleware"
	"github.com/pixelmark/pixelmark/backend-go/internal/typeid"
	"github.com/pixelmark/pixelmark/backend-go/internal/viewer"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("apply schema", "error", err)
		os.Exit(1)
	}

	queries := db.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	datasetService := dataset.NewService(queries)
	datasetHandler := dataset.NewHandler(datasetService)

	hub := viewer.NewHub(datasetService, slog.Default())
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, hub.SessionCount())
	}).Methods("GET")

	// Preview assets (public; used by the playground and authenticated users)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/datasets", datasetHandler.List).Methods("GET")
	api.HandleFunc("/datasets", datasetHandler.Create).Methods("POST")
	api.HandleFunc("/datasets/{datasetId}", datasetHandler.Get).Methods("GET")
	api.HandleFunc("/datasets/{datasetId}", datasetHandler.Delete).Methods("DELETE")
	api.HandleFunc("/datasets/{datasetId}/images", datasetHandler.ListImages).Methods("GET")
	api.HandleFunc("/datasets/{datasetId}/images", datasetHandler.AddImage).Methods("POST")
	api.HandleFunc("/images/{imageId}/snapshots/latest", datasetHandler.GetLatestSnapshot).Methods("GET")

	// WebSocket viewer endpoint
	originPatterns := wsOriginPatterns(cfg.AllowedOrigins)
	r.HandleFunc("/ws/viewer/{imageId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, datasetService, originPatterns)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// wsOriginPatterns turns the configured CORS origins into host patterns
// accepted by the websocket handshake.
func wsOriginPatterns(origins string) []string {
	var patterns []string
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		origin = strings.TrimPrefix(origin, "http://")
		origin = strings.TrimPrefix(origin, "https://")
		if origin != "" {
			patterns = append(patterns, origin)
		}
	}
	return patterns
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *viewer.Hub, authSvc *auth.Service, datasets *dataset.Service, originPatterns []string) {
	vars := mux.Vars(r)
	imageID := vars["imageId"]

	var userID string

	// The playground image allows anonymous access
	if imageID == viewer.PlaygroundImageID {
		userID = "anon-" + uuid.New().String()[:8]
	} else {
		if err := typeid.Validate(imageID, typeid.PrefixImage); err != nil {
			http.Error(w, "invalid image id", http.StatusBadRequest)
			return
		}

		// Auth via query param for real images
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := datasets.CheckImageAccess(r.Context(), imageID, userID); err != nil {
			http.Error(w, "not authorized for image", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	sessionID := typeid.NewSessionID()
	client := viewer.NewClient(hub, conn, userID, sessionID, imageID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
