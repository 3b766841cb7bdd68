package main // Entry point package

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/referral-service/internal/config"
	"github.com/iliyamo/referral-service/internal/database"
	"github.com/iliyamo/referral-service/internal/handler"
	"github.com/iliyamo/referral-service/internal/logging"
	"github.com/iliyamo/referral-service/internal/middleware"
	"github.com/iliyamo/referral-service/internal/queue"
	"github.com/iliyamo/referral-service/internal/repository"
	"github.com/iliyamo/referral-service/internal/router"
	"github.com/iliyamo/referral-service/internal/service"
	"github.com/iliyamo/referral-service/internal/utils"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine outside local dev

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("mysql connect failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional; without it the detail route is served uncached.
	cacheCfg := config.LoadCacheConfig()
	var cache *middleware.ResponseCache
	if cacheCfg.Enabled {
		if rdb := config.NewRedisClient(); rdb != nil {
			defer rdb.Close()
			cache = middleware.NewResponseCache(cacheCfg, rdb)
		} else {
			log.Warn("redis unavailable; response cache disabled")
		}
	}

	users := repository.NewUserRepo(db)
	docs := repository.NewDocumentRepo(db)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)

	var events service.EventPublisher
	var wg sync.WaitGroup
	if cfg.QueueEnabled {
		events = service.NewAMQPPublisher(cfg.RabbitMQURL, log)
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, LogDir: "logs", Log: log}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("referral consumer stopped")
			}
		}()
	}
	proc := service.NewProcessor(database.NewTxRunner(db), users, docs, hasher, events, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echo.WrapMiddleware(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}).Handler))
	}

	var inv handler.CacheInvalidator
	var cacheMW echo.MiddlewareFunc
	if cache != nil {
		inv, cacheMW = cache, cache.Middleware()
	}
	router.RegisterRoutes(e, db, log)
	router.RegisterReferral(e, handler.NewReferralHandler(proc, inv, log))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, hasher, log))
	router.RegisterUsers(e, handler.NewUserHandler(users, docs, log), cacheMW, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	wg.Wait()
}
