package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/promptstash/promptstash/internal/config"
	"github.com/promptstash/promptstash/internal/domain"
	"github.com/promptstash/promptstash/internal/handler"
	"github.com/promptstash/promptstash/internal/middleware"
	"github.com/promptstash/promptstash/internal/repository"
	"github.com/promptstash/promptstash/internal/routes"
	"github.com/promptstash/promptstash/internal/service"
	pkgcache "github.com/promptstash/promptstash/pkg/cache"
	"github.com/promptstash/promptstash/pkg/logger"
	pkgredis "github.com/promptstash/promptstash/pkg/redis"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// getConfigPath returns the config file path for the current APP_ENV.
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	logger.InitStructured(env)
	logger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config %s: %v", configPath, err)
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Prompt{}, &domain.PromptVersion{}); err != nil {
		logger.Fatal("failed to migrate schema: %v", err)
	}

	var cacheSvc pkgcache.Service
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			// The cache is an optimization; the server runs without it.
			logger.Warn("redis unavailable, running without cache: %v", err)
		} else {
			cacheSvc = pkgcache.NewRedisCache(redisClient)
			logger.Info("redis cache enabled at %s:%d", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	promptRepo := repository.NewPromptRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	svc := service.NewPromptService(db, promptRepo, versionRepo, cacheSvc)
	h := handler.NewPromptHandler(svc)

	if env != "local" && env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
	}))

	routes.Setup(router, h, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown: %v", err)
	}
}
