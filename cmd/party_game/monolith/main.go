package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/config"
	gatewayHttp "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/adapter/http"
	gatewayLocal "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/adapter/local"
	gatewayUseCase "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/usecase"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/ws"
	partyHttp "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/adapter/http"
	partyRedis "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/adapter/redis"
	partyDomain "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	partyMachine "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/machine"
	partyRepo "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/repository/db"
	partyUseCase "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/usecase"
	userHttp "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/adapter/http"
	userRepo "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/repository/db"
	userUseCase "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/usecase"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/anonymizer"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

func main() {
	pprofPort := flag.String("pprof-port", "", "Port to run pprof server on (e.g., 6060)")
	verboseSQL := flag.Bool("sql", false, "Log every SQL statement")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.LoadMonolithConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if cfg.Log.File != "" {
		logger.InitWithFile(cfg.Log.File, cfg.Log.Level, cfg.Log.Format)
	} else {
		logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	}
	defer logger.Close()

	if *pprofPort != "" {
		go func() {
			addr := "localhost:" + *pprofPort
			logger.InfoGlobal().Str("addr", addr).Msg("📈 Starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.ErrorGlobal().Err(err).Msg("Failed to start pprof server")
			}
		}()
	}

	logger.InfoGlobal().Str("service", cfg.Server.Name).Msg("🎮 Starting Party Game Monolith...")

	if err := partyDomain.SetSnowflakeNode(cfg.Game.SnowflakeNode); err != nil {
		logger.FatalGlobal().Err(err).Msg("Invalid ledger node id")
	}

	// 2. Initialize Infrastructure
	db := openDatabase(cfg.Database, *verboseSQL)
	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	store := partyRepo.NewStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to migrate party game tables")
	}
	if err := userRepo.Migrate(db); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to migrate user tables")
	}
	logger.InfoGlobal().Str("driver", cfg.Database.Driver).Msg("✅ Database ready")

	anon, err := anonymizer.New(cfg.Game.AnonymizerSecret)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to create anonymizer")
	}

	// 3. Initialize Modules

	// Gateway first, the broadcast sink writes into it
	wsManager := ws.NewManager()
	localBroadcaster := gatewayLocal.NewBroadcaster(wsManager)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	var broadcaster partyDomain.Broadcaster = localBroadcaster
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.FatalGlobal().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Failed to connect to redis")
		}

		broadcaster = partyRedis.NewPublisher(rdb, cfg.Redis.Channel)
		relay := partyRedis.NewSubscriber(rdb, cfg.Redis.Channel, localBroadcaster)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Run(relayCtx); err != nil {
				logger.ErrorGlobal().Err(err).Msg("Event relay stopped")
			}
		}()
		logger.InfoGlobal().Str("channel", cfg.Redis.Channel).Msg("✅ Redis event relay started")
	} else {
		logger.InfoGlobal().Msg("✅ Broadcasting to local websocket clients only")
	}

	// User Module
	userUC := userUseCase.NewUserUseCase(userRepo.NewUserRepository(db), userUseCase.Options{
		JWTSecret:       cfg.JWT.Secret,
		TokenDuration:   cfg.JWT.Duration,
		RefreshDuration: cfg.JWT.RefreshDuration,
		BcryptCost:      cfg.JWT.BcryptCost,
	})
	userHttpHandler := userHttp.NewHandler(userUC)
	logger.InfoGlobal().Msg("✅ User module initialized")

	// Party Game Module
	stateMachine := partyMachine.NewStateMachine(store, broadcaster, cfg.Game.MinPlayers)
	partyUC := partyUseCase.NewPartyGameUseCase(store, stateMachine, broadcaster, anon, nil, partyUseCase.Settings{
		MinPlayers:           cfg.Game.MinPlayers,
		DefaultRoundsPerGame: cfg.Game.DefaultRoundsPerGame,
		MaxRoundsPerGame:     cfg.Game.MaxRoundsPerGame,
		DefaultTimePerRound:  cfg.Game.DefaultTimePerRound,
		StartingBalance:      cfg.Game.StartingBalance,
		MaxQuestionLength:    cfg.Game.MaxQuestionLength,
	})
	partyHttpHandler := partyHttp.NewHandler(partyUC, userHttp.PlayerID)
	logger.InfoGlobal().Msg("✅ Party game ready")

	gatewayUC := gatewayUseCase.NewGatewayUseCase(partyUC)
	gatewayHttpHandler := gatewayHttp.NewHandler(gatewayUC, wsManager, userUC, partyUC)

	// 4. Setup HTTP Server
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware("/healthz"))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	router.GET("/healthz", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		userHttpHandler.RegisterRoutes(api.Group("/users"))

		authed := api.Group("")
		authed.Use(userHttp.AuthMiddleware(userUC))
		partyHttpHandler.RegisterRoutes(authed)
	}

	router.GET(cfg.WebSocketPath, func(c *gin.Context) {
		gatewayHttpHandler.HandleWebSocket(c.Writer, c.Request)
	})

	// 5. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoGlobal().
		Str("port", cfg.Server.HTTPPort).
		Str("api_url", fmt.Sprintf("http://localhost:%s/api", cfg.Server.HTTPPort)).
		Str("ws_url", fmt.Sprintf("ws://localhost:%s%s?game_id=GAME_ID&token=YOUR_TOKEN", cfg.Server.HTTPPort, cfg.WebSocketPath)).
		Msg("🚀 Party Game Monolith running")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalGlobal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("🛑 Shutting down server...")

	// 6.1 Stop accepting requests, let in-flight transactions commit
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("HTTP server forced to shutdown")
	}

	// 6.2 Stop the redis relay
	stopRelay()
	wg.Wait()

	// 6.3 Close all WebSocket connections
	logger.InfoGlobal().Msg("🔌 Closing all WebSocket connections...")
	wsManager.Shutdown()

	logger.InfoGlobal().Msg("👋 Server exited properly")
}

func openDatabase(cfg config.DatabaseConfig, verbose bool) *gorm.DB {
	dialector, err := cfg.Dialector()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Invalid database config")
	}

	gormLog := logger.NewGormLogger()
	if verbose {
		gormLog.LogLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
	}
	if cfg.Driver == "sqlite" {
		// sqlite serializes writers anyway
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to ping database")
	}
	return db
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
