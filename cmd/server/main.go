package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"beps/internal/auth"
	"beps/internal/capabilities"
	"beps/internal/config"
	"beps/internal/domain/services"
	"beps/internal/handler"
	"beps/internal/handler/sse"
	"beps/internal/middleware"
	"beps/internal/repository/postgres"
	postgresContent "beps/internal/repository/postgres/content"
	postgresLearning "beps/internal/repository/postgres/learning"
	postgresNetwork "beps/internal/repository/postgres/network"
	postgresNotif "beps/internal/repository/postgres/notification"
	postgresStats "beps/internal/repository/postgres/statistics"
	"beps/internal/repository/r2"
	"beps/internal/repository/redis"
	"beps/internal/scheduler"
	serviceAuth "beps/internal/service/auth"
	serviceContent "beps/internal/service/content"
	serviceLearning "beps/internal/service/learning"
	serviceNetwork "beps/internal/service/network"
	serviceNotif "beps/internal/service/notification"
	serviceStats "beps/internal/service/statistics"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

const shutdownTimeout = 20 * time.Second

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog := config.NewLogger(cfg)
	defer closeLog()
	slog.SetDefault(logger)

	loc := cfg.Location()
	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"timezone", loc.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Token verification: a JWKS endpoint wins over a shared secret
	var jwtVerifier auth.JWTVerifier
	var err error
	if cfg.JWTJWKSURL != "" {
		jwtVerifier, err = auth.NewJWKSVerifier(cfg.JWTJWKSURL, logger)
	} else {
		jwtVerifier, err = auth.NewHMACVerifier(cfg.JWTSecretKey, logger)
	}
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	var revoker services.SessionRevoker
	if cfg.AuthAPIBaseURL != "" {
		revoker = auth.NewLogoutClient(cfg.AuthAPIBaseURL)
	} else {
		logger.Warn("AUTH_API_BASE_URL not set; evicted presence sessions will not be logged out")
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	redisClient, err := redis.NewClient(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	store := r2.NewObjectStore(cfg, logger)

	policies, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize upload policy registry: %v", err)
	}

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	txManager := postgres.NewTransactionManager(pool, logger)
	hierarchyRepo := postgresContent.NewHierarchyRepository(repoConfig)
	workflowRepo := postgresContent.NewWorkflowRepository(repoConfig)
	additionalRepo := postgresContent.NewAdditionalRepository(repoConfig)
	managerRepo := postgresContent.NewManagerRepository(repoConfig)
	assignmentRepo := postgresContent.NewAssignmentRepository(repoConfig)
	ledgerRepo := postgresLearning.NewLedgerRepository(repoConfig)
	insightRepo := postgresLearning.NewInsightRepository(repoConfig)
	summaryRepo := postgresStats.NewSummaryRepository(repoConfig)
	rollupRepo := postgresStats.NewRollupRepository(repoConfig)
	pushRepo := postgresNotif.NewPushRepository(repoConfig)
	ipRangeRepo := postgresNetwork.NewIPRangeRepository(repoConfig)

	cache := redis.NewJSONCache(redisClient)
	pushCache := redis.NewPushCache(redisClient)

	// Services
	authorizer := serviceAuth.NewManagerAuthorizer(hierarchyRepo, managerRepo)
	prober := serviceContent.NewPresenceProber(hierarchyRepo, store, cache, cfg.PresenceCacheTTL, logger)
	hierarchyService := serviceContent.NewHierarchyService(hierarchyRepo, txManager, cache, prober, authorizer, cfg.CacheTTL, logger)
	workflowService := serviceContent.NewWorkflowService(
		hierarchyRepo,
		additionalRepo,
		workflowRepo,
		txManager,
		store,
		policies,
		authorizer,
		hierarchyService,
		loc,
		logger,
	)
	renameService := serviceContent.NewRenameService(
		hierarchyRepo,
		additionalRepo,
		workflowRepo,
		txManager,
		store,
		authorizer,
		hierarchyService,
		logger,
	)
	managerService := serviceContent.NewManagerService(assignmentRepo, hierarchyRepo, txManager, authorizer, hierarchyService, logger)
	ledgerService := serviceLearning.NewLedgerService(ledgerRepo, txManager, cfg.PointDuration, cfg.CompletionDuration, logger)
	pushService := serviceNotif.NewPushService(pushRepo, pushCache, txManager, cfg.PushMessageLimit, cfg.PushCacheTTL, logger)

	classifier, err := serviceNetwork.NewClassifier(ctx, ipRangeRepo, logger)
	if err != nil {
		log.Fatalf("Failed to load internal IP ranges: %v", err)
	}
	reloads, err := redis.Subscribe(ctx, redisClient, redis.IPRangeReloadChannel)
	if err != nil {
		log.Fatalf("Failed to subscribe to IP range reloads: %v", err)
	}
	go serviceNetwork.WatchReloads(ctx, classifier, reloads, logger)

	engine := serviceStats.NewAggregationEngine(summaryRepo, classifier, loc, logger)
	rollupService := serviceStats.NewRollupService(rollupRepo, txManager, loc, logger)
	insightService := serviceLearning.NewInsightService(insightRepo, engine, loc, logger)

	hub := serviceNotif.NewPresenceHub(jwtVerifier, revoker, cfg.WSClientTimeout, logger)
	go hub.Run(ctx, cfg.WSPingInterval, cfg.WSCheckInterval)

	// Background jobs run only on the instance holding the advisory lock
	sched := scheduler.New(postgres.NewAdvisoryLock(pool, cfg.CleanupLockKey, logger), loc, logger)
	sched.Add("cleanup_generated", scheduler.EverySpec(cfg.CleanupInterval), scheduler.CleanupJob(cfg.GeneratedDir, cfg.CleanupMaxAge, logger))
	sched.Add("summary_rollup", cfg.RollupSchedule, scheduler.RollupJob(rollupService, loc))
	if _, err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	logger.Info("services initialized")

	// Handlers
	contentHandler := handler.NewContentHandler(hierarchyService, workflowService, renameService, prober, logger)
	managerHandler := handler.NewManagerHandler(managerService, logger)
	learningHandler := handler.NewLearningHandler(ledgerService, logger)
	insightHandler := handler.NewInsightHandler(insightService, logger)
	statisticsHandler := handler.NewStatisticsHandler(engine, authorizer, logger)
	pushHandler := handler.NewPushHandler(pushService, authorizer, &sse.Config{KeepAliveInterval: cfg.SSEKeepAlive}, logger)
	networkHandler := handler.NewNetworkHandler(classifier, authorizer, logger)
	origins := strings.Split(cfg.CORSOrigins, ",")
	presenceHandler := handler.NewPresenceHandler(hub, origins, cfg.WSMaxMessageSize, logger)

	// Authenticated API (Go 1.22+ enhanced patterns)
	api := http.NewServeMux()

	api.HandleFunc("GET /api/contents/hierarchy", contentHandler.Hierarchy)
	api.HandleFunc("POST /api/contents/channels", contentHandler.CreateChannel)
	api.HandleFunc("POST /api/contents/folders", contentHandler.CreateFolder)
	api.HandleFunc("POST /api/contents/pages", contentHandler.CreatePage)
	api.HandleFunc("DELETE /api/contents/channels/{id}", contentHandler.DeleteChannel)
	api.HandleFunc("DELETE /api/contents/folders/{id}", contentHandler.DeleteFolder)
	api.HandleFunc("DELETE /api/contents/pages/{id}", contentHandler.DeletePage)

	api.HandleFunc("PUT /api/contents/channel/{id}/rename", contentHandler.RenameChannel)
	api.HandleFunc("PUT /api/contents/category/{id}/rename", contentHandler.RenameFolder)
	api.HandleFunc("PUT /api/contents/page/{id}/rename", contentHandler.RenamePage)

	api.HandleFunc("POST /api/contents/page/{id}/upload-pending", contentHandler.UploadPagePending)
	api.HandleFunc("GET /api/contents/page/{id}/pending-status", contentHandler.PagePendingStatus)
	api.HandleFunc("POST /api/contents/page/{id}/approve-update", contentHandler.ApprovePage)
	api.HandleFunc("GET /api/contents/page/{id}/archives", contentHandler.PageArchives)
	api.HandleFunc("DELETE /api/contents/page/{id}/content", contentHandler.DeletePageContent)
	api.HandleFunc("GET /api/contents/page/{id}/additionals", contentHandler.ListAdditionals)
	api.HandleFunc("POST /api/contents/page/{id}/additional", contentHandler.CreateAdditional)

	api.HandleFunc("GET /api/contents/additional/{id}", contentHandler.GetAdditional)
	api.HandleFunc("DELETE /api/contents/additional/{id}", contentHandler.DeleteAdditional)
	api.HandleFunc("POST /api/contents/additional/{id}/upload-pending", contentHandler.UploadAdditionalPending)
	api.HandleFunc("GET /api/contents/additional/{id}/pending-status", contentHandler.AdditionalPendingStatus)
	api.HandleFunc("POST /api/contents/additional/{id}/approve-update", contentHandler.ApproveAdditional)
	api.HandleFunc("GET /api/contents/additional/{id}/archives", contentHandler.AdditionalArchives)

	api.HandleFunc("POST /api/contents/page-detail/{id}/upload-content", contentHandler.UploadDetail)
	api.HandleFunc("GET /api/contents/page-detail/{id}/download", contentHandler.DetailDownload)

	api.HandleFunc("GET /api/contents/content_manager", managerHandler.List)
	api.HandleFunc("POST /api/contents/content_manager", managerHandler.Create)
	api.HandleFunc("PUT /api/contents/content_manager/{id}", managerHandler.Update)
	api.HandleFunc("DELETE /api/contents/content_manager/{id}", managerHandler.Delete)

	api.HandleFunc("GET /api/contents/file/{id}/presence", contentHandler.FilePresence)
	api.HandleFunc("GET /api/contents/file/{id}/url", contentHandler.FileURL)

	api.HandleFunc("POST /api/learning/views", learningHandler.RecordView)
	api.HandleFunc("GET /api/learning/start", learningHandler.Start)
	api.HandleFunc("GET /api/learning/points", learningHandler.Points)
	api.HandleFunc("GET /api/learning/point/rank", insightHandler.PointRank)
	api.HandleFunc("GET /api/learning/top_viewed_pages", insightHandler.TopViewedPages)
	api.HandleFunc("GET /api/learning/rank-update-contents", insightHandler.UpdateRanking)
	api.HandleFunc("GET /api/learning/updated_contents", insightHandler.UpdatedContents)
	api.HandleFunc("GET /api/learning/my_learning_rank", insightHandler.LearningRank)
	api.HandleFunc("GET /api/learning/continuous_learning_days", insightHandler.ContinuousDays)
	api.HandleFunc("GET /api/learning/learning_time", insightHandler.LearningTime)
	api.HandleFunc("GET /api/learning/category_progress", insightHandler.CategoryProgress)
	api.HandleFunc("GET /api/learning/channel_completion", insightHandler.ChannelCompletion)

	api.HandleFunc("GET /api/statistics/{metric}", statisticsHandler.Query)

	api.HandleFunc("POST /api/push/send", pushHandler.Send)
	api.HandleFunc("GET /api/push/events", pushHandler.Events)
	api.HandleFunc("GET /api/push/load", pushHandler.Load)
	api.HandleFunc("POST /api/push/read", pushHandler.Read)
	api.HandleFunc("GET /api/push/count", pushHandler.Count)

	api.HandleFunc("POST /api/admin/ip-ranges/reload", networkHandler.ReloadRanges)

	// Public routes; the presence socket authenticates with its own frames
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/presence/ws", presenceHandler.Serve)
	mux.Handle("/api/", middleware.Auth(jwtVerifier, logger)(api))

	// Order: CORS → Recovery → Logging → Routes
	var root http.Handler = mux
	root = middleware.RequestLogger(logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Minute, // large additional uploads
		WriteTimeout: 0,                // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
