package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"noticeboard/admin"
	"noticeboard/analytics"
	"noticeboard/cache"
	"noticeboard/common"
	"noticeboard/config"
	"noticeboard/database"
	"noticeboard/editor"
	"noticeboard/extraction"
	"noticeboard/mcp"
	"noticeboard/repository"
	"noticeboard/site"
)

func main() {
	mcpStdio := flag.Bool("mcp", false, "serve the MCP tools over stdio instead of the web app")
	mcpHTTP := flag.String("mcp-http", "", "serve the MCP tools over HTTP on this address (e.g. ':8081')")
	flag.Parse()

	cfg, err := config.Load(os.Getenv(config.EnvPath))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	common.SetupLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Accounts always live in a gorm database, even when pages are in SurrealDB.
	accountsCfg := cfg.Database
	if accountsCfg.Driver == "surrealdb" {
		accountsCfg.Driver = "sqlite"
	}
	db, err := common.ConnectDb(accountsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	repo := openRepository(ctx, cfg, db)
	pipeline := extraction.NewPipeline(newExtractor(cfg.Extractor))

	if *mcpStdio || *mcpHTTP != "" {
		s := mcp.NewServer(pipeline, repo)
		if *mcpHTTP != "" {
			err = mcp.ServeHTTP(s, *mcpHTTP)
		} else {
			err = mcp.ServeStdio(s)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("MCP server stopped")
		}
		return
	}

	if err := admin.SeedAdmin(db, cfg.Admin.Email, cfg.Admin.PasswordHash); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	if cfg.Server.SessionSecret == "" {
		log.Fatal().Msg("SESSION_SECRET environment variable not set")
	}

	router := gin.Default()

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.Server.SecureCookies,
	})
	router.Use(sessions.Sessions("noticeboard-session", store))

	pageCache := cache.NewStore(cfg.Cache.Dir, cfg.Cache.GetTTL())
	tracker := analytics.NewAnalyticsModule(common.ConnectAnalyticsDb(cfg.Database.AnalyticsDB))

	editorSessions := editor.NewSessions(cfg.Editor.GetSessionTTL())
	go editorSessions.Run(ctx, time.Minute)
	go pruneCache(ctx, pageCache, cfg.Cache.GetTTL())

	siteModule := site.NewSiteModule(repo, pageCache, tracker, cfg.Server.Domain)
	siteModule.RegisterRoutes(router)

	adminModule := admin.NewAdminModule(admin.Options{
		DB:        db,
		Repo:      repo,
		Sessions:  editorSessions,
		Pipeline:  pipeline,
		Cache:     pageCache,
		Analytics: tracker,
		Admin:     cfg.Admin,
	})
	adminModule.RegisterRoutes(router)

	log.Info().Str("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting server")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func openRepository(ctx context.Context, cfg *config.Config, db *gorm.DB) repository.PageRepository {
	if cfg.Database.Driver != "surrealdb" {
		return repository.NewGormRepository(db)
	}
	repo, err := repository.NewSurrealRepository(ctx, cfg.Database.Surreal)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to SurrealDB")
	}
	return repo
}

func newExtractor(cfg config.ExtractorConfig) extraction.Extractor {
	if cfg.URL == "" {
		log.Info().Msg("extractor url not set, using the built-in HTML extractor")
		return extraction.NewHTMLExtractor()
	}
	retry := extraction.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	return extraction.NewRemoteExtractor(extraction.RemoteConfig{
		URL:       cfg.URL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.GetTimeout(),
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
		Retry:     retry,
	})
}

func pruneCache(ctx context.Context, store *cache.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune()
			if err != nil {
				log.Warn().Err(err).Msg("cache prune failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("count", n).Msg("pruned expired cache files")
			}
		}
	}
}
