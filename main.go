// File: venuedir/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venuedir/config"
	"venuedir/cron"
	"venuedir/database"
	"venuedir/handlers"
	"venuedir/metrics"
	"venuedir/middleware"
	"venuedir/models"
	"venuedir/routes"
	"venuedir/services/aggregation"
	"venuedir/services/directory"
	"venuedir/services/favorites"
	"venuedir/services/geocode"
	"venuedir/services/media"
	"venuedir/services/review"
	"venuedir/services/search"
	"venuedir/services/tasks"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cols, err := database.OpenCollections(ctx, logger)
	if err != nil {
		logger.Fatal("main: failed to open record store", zap.Error(err))
	}
	defer cols.Close()

	timeout := config.AppConfig.RemoteTimeout()
	var m *metrics.Metrics
	if config.AppConfig.MetricsEnabled {
		m = metrics.New()
	}
	healthChecks := map[string]utils.HealthCheck{"store": cols.Check}

	// Media references.
	mediaOpts := []media.Option{}
	cld, err := utils.Cloudinary()
	if err != nil {
		logger.Fatal("main: failed to initialize cloudinary", zap.Error(err))
	}
	if cld != nil {
		mediaOpts = append(mediaOpts, media.WithCloudinary(cld))
	}
	if ttl := config.AppConfig.MediaSignedURLTTL(); ttl > 0 && config.AppConfig.FirebaseCredentialsFile != "" {
		sa, err := config.LoadServiceAccount(config.AppConfig.FirebaseCredentialsFile)
		if err != nil {
			logger.Fatal("main: failed to load service account for signed media URLs", zap.Error(err))
		}
		mediaOpts = append(mediaOpts, media.WithSignedURLs(sa.ClientEmail, sa.PrivateKey, ttl))
	}
	normalizer := media.NewNormalizer(logger, mediaOpts...)

	// Gateways.
	dir, err := directory.NewGateway(cols.Merchants, normalizer, timeout, logger)
	if err != nil {
		logger.Fatal("main: failed to build merchant gateway", zap.Error(err))
	}
	reviews, err := review.NewGateway(cols.Reviews, models.Session{}, timeout, logger)
	if err != nil {
		logger.Fatal("main: failed to build review gateway", zap.Error(err))
	}

	// Geocoding is optional; without an API key coordinates stay as stored.
	var resolver search.CoordinateResolver
	if key := config.AppConfig.GoogleAPIKey; key != "" {
		var provider geocode.Provider = geocode.NewGoogleProvider(key, config.AppConfig.GeocodeRequestsPerSec, timeout)
		if m != nil {
			provider = m.InstrumentGeocoder(provider)
		}
		resolver = geocode.NewResolver(provider, logger,
			geocode.WithConcurrency(config.AppConfig.GeocodeConcurrency),
			geocode.WithTimeout(timeout),
			geocode.WithWriteBack(dir),
		)
	} else {
		logger.Warn("GOOGLE_API_KEY not set, geocoding disabled")
	}

	// Redis backs favorites and the aggregate retry queue.
	var (
		favStore favorites.Store
		queue    aggregation.RetryQueue
		worker   *asynq.Server
		client   *asynq.Client
	)
	if config.AppConfig.RedisAddr != "" {
		cache := utils.GetCacheClient()
		favStore = favorites.NewRedisStore(cache)
		healthChecks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx).Err() }

		client = asynq.NewClient(cron.QueueRedisOpt())
		queue = tasks.NewEnqueuer(client, 30*time.Second)
		if m != nil {
			queue = m.InstrumentRetryQueue(queue)
		}
	} else {
		logger.Warn("REDIS_ADDR not set, favorites kept in memory and aggregate retries disabled")
		favStore = favorites.NewMemoryStore()
	}

	engine := aggregation.NewEngine(reviews, dir, logger)
	reviewService, err := aggregation.NewService(
		func(s models.Session) aggregation.ReviewGateway { return reviews.WithSession(s) },
		engine, dir, queue, logger,
	)
	if err != nil {
		logger.Fatal("main: failed to build review service", zap.Error(err))
	}
	if client != nil {
		worker = cron.InitAggregateWorker(ctx, engine, logger)
	}

	// Search sessions.
	searchCfg := search.Config{
		PageSize: config.AppConfig.SearchPageSize,
		Debounce: config.AppConfig.SearchDebounce(),
		Timeout:  timeout,
	}
	registry := search.NewRegistry(func(s models.Session) *search.Controller {
		opts := []search.Option{search.WithFavorites(favStore)}
		if resolver != nil {
			opts = append(opts, search.WithResolver(resolver))
		}
		return search.NewController(dir, s, searchCfg, logger, opts...)
	}, logger)
	if m != nil {
		m.TrackSearchSessions(registry.Len)
	}

	scheduler, err := cron.StartScheduler(ctx, config.AppConfig.ReconcileSchedule, dir, engine,
		registry, config.AppConfig.SearchSessionIdle(), logger)
	if err != nil {
		logger.Fatal("main: failed to start scheduler", zap.Error(err))
	}
	utils.StartHealthMonitor(ctx, healthChecks, logger)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.PanicRecovery())
	router.Use(middleware.RequestLogger(logger))
	if m != nil {
		router.Use(m.Middleware())
	}
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewMerchantHandler(dir, resolver),
		handlers.NewReviewHandler(reviews, reviewService),
		handlers.NewFavoritesHandler(favStore, dir),
		handlers.NewSearchHandler(registry),
		handlers.NewMediaHandler(normalizer),
	)
	if m != nil {
		handlerBundle.MetricsHandler = m.Handler()
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	<-scheduler.Stop().Done()
	if worker != nil {
		worker.Shutdown()
	}
	if client != nil {
		client.Close()
	}
	stop()

	logger.Sugar().Info("main: server stopped gracefully")
}
