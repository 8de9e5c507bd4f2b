package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/guardian/config"
	"github.com/dev-mohitbeniwal/guardian/controller"
	"github.com/dev-mohitbeniwal/guardian/db"
	"github.com/dev-mohitbeniwal/guardian/discovery"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/router"
	"github.com/dev-mohitbeniwal/guardian/server"
	"github.com/dev-mohitbeniwal/guardian/service"
	"github.com/dev-mohitbeniwal/guardian/store"
	"github.com/dev-mohitbeniwal/guardian/util"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	cfg := config.GetConfig()

	// Initialize the ACL store backend
	aclStore, cleanup, err := buildStore(cfg.Store.Backend)
	if err != nil {
		logger.Fatal("Failed to initialize ACL store", zap.Error(err))
	}
	defer cleanup()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize services and utilities
	notificationService := util.NewNotificationService()
	aclService := service.NewACLService(aclStore, notificationService, eventBus)
	aclController := controller.NewACLController(aclService)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	opts := router.Options{}
	if cfg.Store.Backend == "redis" {
		// The rate limiter rides on the same Redis connection.
		opts.RateLimitRequests = config.GetInt("ratelimit.requests")
		opts.RateLimitDuration = config.GetDuration("ratelimit.duration")
	}
	engine := router.SetupRouter(aclController, opts)

	// Single-node deployment: the service registers into a process-local
	// registry. Remote clients use a StaticResolver fed from the
	// discovery.services config section instead.
	registry := discovery.NewInMemoryRegistry()

	authorizationService := server.NewAuthorizationService(
		engine,
		registry,
		fmt.Sprintf(":%s", cfg.Server.Port),
	)
	if err := authorizationService.Start(ctx); err != nil {
		logger.Fatal("Failed to start authorization service", zap.Error(err))
	}

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := authorizationService.Stop(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func buildStore(backend string) (store.ACLStore, func(), error) {
	switch backend {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "redis":
		if err := db.InitRedis(); err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(db.RedisClient), db.CloseRedis, nil
	case "neo4j":
		if err := db.InitNeo4j(); err != nil {
			return nil, nil, err
		}
		return store.NewNeo4jStore(db.Neo4jDriver), db.CloseNeo4j, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend: %s", backend)
}
