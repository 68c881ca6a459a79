package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartsession-backend/config"
	"cartsession-backend/internal/delivery/http/middleware"
	v1 "cartsession-backend/internal/delivery/http/v1"
	"cartsession-backend/internal/infrastructure/cache"
	"cartsession-backend/internal/infrastructure/localstore"
	"cartsession-backend/internal/infrastructure/remotecart"
	"cartsession-backend/internal/infrastructure/session"
	"cartsession-backend/internal/repository/pgxkv"
	"cartsession-backend/internal/usecase"
	"cartsession-backend/pkg/logger"
	"cartsession-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	// Durable KV storage over pgx
	pgxPool, err := pgxkv.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to PostgreSQL")

	kvStore := pgxkv.NewKVRepository(pgxPool)
	txManager := pgxkv.NewTransactionManager(pgxPool)

	// Infrastructure adapters
	localCart := localstore.NewStore(kvStore)
	remoteCart := remotecart.NewClient(cfg.RemoteCartBaseURL, cfg.RemoteCartTimeout)
	syncSignal := session.NewSignal(kvStore)

	// In-memory caches: live sessions and the mutation de-dup window
	sessionCache := cache.NewMemoryCache(cfg.SessionTTL, 2*cfg.SessionTTL)
	dedupCache := cache.NewMemoryCache(cfg.MutationDedupWindow, time.Minute)

	// Core modules
	calc := usecase.NewTotalsCalculator(cfg)
	coordinator := usecase.NewSyncCoordinator(localCart, remoteCart, syncSignal, txManager, cfg.SyncCooldown)
	sessionMgr := usecase.NewSessionManager(sessionCache, cfg.SessionTTL, usecase.CartSessionDeps{
		Local:       localCart,
		Remote:      remoteCart,
		Coordinator: coordinator,
		Calc:        calc,
		Dedup:       dedupCache,
		DedupWindow: cfg.MutationDedupWindow,
		RatePerSec:  cfg.MutationRatePerSec,
		Burst:       cfg.MutationBurst,
		MaxQuantity: cfg.MaxCartQuantity,
	})

	cartHandler := v1.NewCartHandler(sessionMgr, syncSignal, calc)
	configHandler := v1.NewConfigHandler(sessionCache, calc)

	// Set up Router
	mux := http.NewServeMux()

	// Config (Public)
	mux.HandleFunc("GET /api/v1/config/enums", configHandler.GetEnums)

	// Cart (guest and authenticated; OptionalAuth decides which)
	optional := func(h http.HandlerFunc) http.Handler {
		return middleware.OptionalAuth(h)
	}
	mux.Handle("GET /api/v1/cart", optional(cartHandler.GetCart))
	mux.Handle("POST /api/v1/cart/items", optional(cartHandler.AddItem))
	mux.Handle("PUT /api/v1/cart/items/{lineId}", optional(cartHandler.UpdateItem))
	mux.Handle("DELETE /api/v1/cart/items/{lineId}", optional(cartHandler.RemoveItem))
	mux.Handle("DELETE /api/v1/cart", optional(cartHandler.ClearCart))
	mux.Handle("POST /api/v1/cart/discount", optional(cartHandler.ApplyDiscount))
	mux.Handle("POST /api/v1/cart/shipping", optional(cartHandler.SelectShipping))

	// Session transitions (login requires a valid token)
	mux.Handle("POST /api/v1/session/login", middleware.AuthMiddleware(http.HandlerFunc(cartHandler.Login)))
	mux.Handle("POST /api/v1/session/logout", optional(cartHandler.Logout))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok", "db": "connected"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Initialize Rate Limiter with lifecycle management
	// 50 req/s, burst 100, cleanup every minute, TTL 3 minutes
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		50,            // requests per second
		100,           // burst
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	)

	// Apply CORS (with config injection), Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.ServiceStart("cartd", "1.0", cfg.Port)

	// Wait for interrupt signal via channel
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	pgxPool.Close()
	logger.ServiceStop("cartd")
}
