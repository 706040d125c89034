package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/api"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/backup"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/config"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/health"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/shutdown"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/startup"
	"github.com/SlpAus/spot-the-lie-backend/pkg/lifecycle"
	"github.com/SlpAus/spot-the-lie-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using environment as is")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	ctx := context.Background()
	rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Fatalf("open redis: %v", err)
	}
	var redisStatus *database.RedisStatus
	if rdb != nil {
		redisStatus = database.NewRedisStatus()
	}

	tokens, err := token.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("create token issuer: %v", err)
	}

	app := api.NewApp(api.Deps{
		DB:          db,
		Redis:       rdb,
		RedisStatus: redisStatus,
		Tokens:      tokens,
		Config:      cfg,
	})

	if err := startup.InitializeApplication(ctx, db, app.Caches()...); err != nil {
		log.Fatalf("initialize application: %v", err)
	}

	graceful := lifecycle.NewManager("graceful")
	forceful := lifecycle.NewManager("forceful")
	coordinator := shutdown.NewCoordinator(graceful, forceful)
	coordinator.OnClose(func() error { return database.Close(db) })

	if rdb != nil {
		checker := health.NewChecker(rdb, redisStatus, health.DefaultInterval, app.Caches()...)
		if err := checker.Init(ctx); err != nil {
			log.Fatalf("redis health: %v", err)
		}
		checker.Check(ctx)
		handle, err := graceful.NewServiceHandle("redis-health")
		if err != nil {
			log.Fatalf("register redis health checker: %v", err)
		}
		go checker.Run(handle)
		coordinator.OnClose(rdb.Close)
	}

	if cfg.Database.Backup.Enabled {
		if cfg.Database.Driver != database.DriverSqlite {
			log.Printf("backup: driver %q is not snapshotted, scheduler not started", cfg.Database.Driver)
		} else {
			handle, err := graceful.NewServiceHandle("backup")
			if err != nil {
				log.Fatalf("register backup scheduler: %v", err)
			}
			go backup.NewSnapshotter(db, cfg.Database.Backup).Run(handle)
		}
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.SetupRoutes(router, app)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	coordinator.ListenForSignalsAndShutdown(server)
}
