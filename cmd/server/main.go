package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-request-queue/internal/config"
	"github.com/iliyamo/live-request-queue/internal/database"
	"github.com/iliyamo/live-request-queue/internal/engine"
	"github.com/iliyamo/live-request-queue/internal/handler"
	"github.com/iliyamo/live-request-queue/internal/middleware"
	"github.com/iliyamo/live-request-queue/internal/module"
	"github.com/iliyamo/live-request-queue/internal/queue"
	"github.com/iliyamo/live-request-queue/internal/realtime"
	"github.com/iliyamo/live-request-queue/internal/repository"
	"github.com/iliyamo/live-request-queue/internal/router"
	"github.com/iliyamo/live-request-queue/internal/search"
	queue_publisher "github.com/iliyamo/live-request-queue/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	hub := realtime.NewHub()
	go hub.Run()

	// Background consumer that mirrors finished requests into the log
	// file.  Runs with its own reconnect loop; a dead broker only costs
	// the audit trail, never the API.
	go func() {
		if err := queue.StartFinishedConsumer(); err != nil {
			log.Printf("queue consumer: %v", err)
		}
	}()

	requesters := repository.NewRequesterRepo(db)
	events := repository.NewEventRepo(db)
	configs := repository.NewConfigRepo(db)
	catalog := repository.NewCatalogRepo(db)

	pub := queue_publisher.NewPublisherFromEnv()

	// A typed nil assigned straight into the interface would read as
	// "provider configured"; keep the interface nil when there is none.
	var provider search.Provider
	if p := search.NewHTTPProviderFromEnv(); p != nil {
		provider = p
	}

	musicDesc := module.NewMusicDescriptor()
	karaokeDesc := module.NewKaraokeDescriptor()

	musicEngine := engine.New(musicDesc,
		repository.NewRequestRepo(db, musicDesc.Name, musicDesc.TerminalStatuses()),
		configs, nil, requesters, events, hub, pub, provider)
	karaokeEngine := engine.New(karaokeDesc,
		repository.NewRequestRepo(db, karaokeDesc.Name, karaokeDesc.TerminalStatuses()),
		configs, catalog, requesters, events, hub, pub, provider)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterModule(e, module.Music, handler.NewModuleHandler(musicEngine), hub, cfg.JWTSecret, cacheMW)
	router.RegisterModule(e, module.Karaoke, handler.NewModuleHandler(karaokeEngine), hub, cfg.JWTSecret, cacheMW)
	router.RegisterCatalog(e, handler.NewCatalogHandler(karaokeEngine), cfg.JWTSecret, cacheMW)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
