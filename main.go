package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-house/internal/auctionerrors"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/config"
	"auction-house/internal/db"
	identity "auction-house/internal/identityService"
	listing "auction-house/internal/listingService"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Warn("failed to load .env", map[string]any{"error": err.Error()})
	}

	cfg := config.Load()
	utils.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		utils.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}
	gin.SetMode(cfg.GinMode)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"store": cfg.Store, "error": err.Error()})
	}
	defer closeStore()

	rdb := openRedis(cfg)
	var revocations identity.RevocationList = identity.NewMemoryRevocationList()
	if rdb != nil {
		defer rdb.Close()
		revocations = identity.NewRedisRevocationList(rdb)
	}

	listingSvc := listing.NewListingService(store)
	seedCategories(listingSvc, cfg.Categories())

	router := server.SetupRouter(cfg, server.Services{
		Bidding:  bidding.NewBiddingService(store),
		Listing:  listingSvc,
		Identity: identity.NewIdentityService(store, revocations, cfg.JWTSecret, cfg.JWTTTL),
	}, rdb)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "store": cfg.Store, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Info("shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Error("server forced to shutdown", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("server exited properly", nil)
}

// openStore returns the configured backend and a function releasing it
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		utils.Warn("using in-memory store, data is lost on restart", nil)
		return repository.NewMemoryRepo(), func() {}, nil
	}

	conn, err := db.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	logSchemaVersion(conn)
	return repository.NewSQLRepo(conn), func() { _ = conn.Close() }, nil
}

func logSchemaVersion(conn *sql.DB) {
	version, dirty, err := db.SchemaVersion(conn)
	if err != nil {
		utils.Warn("could not read schema version", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("database ready", map[string]any{"schema_version": version, "dirty": dirty})
}

// openRedis connects to Redis when REDIS_ADDR is set. An unreachable server
// is logged and treated as absent.
func openRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		utils.Warn("redis unavailable, rate limiting disabled and revocations kept in memory", map[string]any{
			"addr":  cfg.RedisAddr,
			"error": err.Error(),
		})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// seedCategories creates the configured categories that do not exist yet
func seedCategories(svc *listing.ListingService, names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range names {
		if _, err := svc.CreateCategory(ctx, name); err != nil && !errors.Is(err, auctionerrors.ErrCategoryExists) {
			utils.Warn("failed to seed category", map[string]any{"name": name, "error": err.Error()})
		}
	}
}
