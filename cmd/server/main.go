package main // Entry point package

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/auth"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/config"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/database"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/handler"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/i18n"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/identity"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/middleware"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/queue"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/repository"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/router"
)

func main() {
	cfg := config.Load() // Load environment config; missing provider creds are fatal here

	translator, err := i18n.New()
	if err != nil {
		log.Fatalf("i18n: %v", err)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: without it the role cache becomes a no-op and the
	// response cache / rate limiter switch off.
	rdb := config.NewRedisClient()
	var roleCache auth.RoleCache = auth.NopRoleCache{}
	if rdb != nil {
		roleCache = auth.NewRedisRoleCache(rdb)
	} else {
		log.Println("redis unavailable, running without role cache / response cache / rate limiter")
	}

	articles := repository.NewArticleRepo(db)
	votes := repository.NewVoteRepo(db)
	profiles := repository.NewProfileRepo(db)

	idp := identity.NewClient(cfg.ProviderURL, cfg.ProviderKey)
	sessions := auth.NewRegistry(cfg.SessionTTL)
	go sessions.Sweep(context.Background())

	// Engagement consumer applies queued view counts; it reconnects on its
	// own and the server runs fine while the broker is down.
	go func() {
		if err := queue.StartEngagementConsumer(articles); err != nil {
			log.Printf("engagement consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(i18n.Middleware())

	cacheMw := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMw := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, idp, profiles, roleCache, sessions, translator)
	publicH := handler.NewPublicHandler(articles, votes, translator)
	adminH := handler.NewAdminHandler(articles, translator)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, publicH, cacheMw, limitMw)
	router.RegisterAdmin(e, authH, adminH, sessions, limitMw)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
