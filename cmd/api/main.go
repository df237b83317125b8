package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"archie-core-shopify-app/internal/application"
	"archie-core-shopify-app/internal/config"
	apiinfra "archie-core-shopify-app/internal/infrastructure/api"
	"archie-core-shopify-app/internal/infrastructure/cache"
	"archie-core-shopify-app/internal/infrastructure/metrics"
	"archie-core-shopify-app/internal/infrastructure/pubsub"
	"archie-core-shopify-app/internal/infrastructure/repository"
	shopifyinfra "archie-core-shopify-app/internal/infrastructure/shopify"
	"archie-core-shopify-app/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sessionStore is what the selected backend must provide
type sessionStore interface {
	ports.SessionStore
	ports.SessionRemover
	ports.InstallationChecker
}

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	store, closeStore := openSessionStore(ctx, cfg, logger)
	defer closeStore()

	capabilities := application.DetectCapabilities(ctx, store, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// Platform adapters
	rateLimiter := shopifyinfra.NewRateLimiter(cfg.PlatformRateLimit, cfg.PlatformRateBurst)
	graphqlClient := shopifyinfra.NewGraphQLClient(cfg.APIKey, cfg.APISecret, shopifyinfra.ClientOptions{
		APIVersion:  cfg.APIVersion,
		Retries:     3,
		RateLimiter: rateLimiter,
		Metrics:     recorder,
	}, logger)

	var billing ports.BillingChecker = shopifyinfra.NewBillingChecker(graphqlClient, cfg.APIKey, logger)
	var billingCache ports.ShopCacheInvalidator
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, billing cache disabled")
		} else {
			defer redisClient.Close()
			cached := shopifyinfra.NewCachedBillingChecker(
				billing,
				cache.NewRedisStore(redisClient, "shopify_app:"),
				cfg.BillingCacheTTL,
				recorder,
				logger,
			)
			billing = cached
			billingCache = cached
		}
	}

	probe := shopifyinfra.NewConnectivityProbe(graphqlClient, logger)
	verifier := shopifyinfra.NewSessionTokenVerifier(cfg.APIKey, cfg.APISecret, cfg.OldAPISecret, logger)
	cookie := shopifyinfra.NewSessionCookie(cfg.CookieKey)
	identity := shopifyinfra.NewSessionIdentity(verifier, cookie, cfg.IsEmbedded)
	exchanger := shopifyinfra.NewTokenExchangeClient(cfg.APIKey, cfg.APISecret, shopifyinfra.TokenExchangeOptions{
		ExpiringOfflineTokens: cfg.ExpiringOfflineTokens,
		Metrics:               recorder,
	}, logger)
	installer := shopifyinfra.NewOAuthInstaller(
		cfg.APIKey,
		cfg.APISecret,
		cfg.HostURL+"/api/auth/callback",
		cfg.Scopes,
		cfg.CookieKey,
		logger,
	)

	// Application services
	persister := application.NewSessionPersister(store, capabilities, cfg.DefaultScopes(), logger)
	validator := application.NewSessionValidator(billing, probe, cfg.Billing, logger)
	refresher := application.NewRefreshCoordinator(store, exchanger, persister, capabilities, logger)
	guard := application.NewSessionGuard(
		store,
		identity,
		verifier,
		exchanger,
		validator,
		refresher,
		persister,
		application.GuardConfig{IsEmbedded: cfg.IsEmbedded},
		logger,
	)

	// Webhooks
	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	webhookPubSub.Subscribe(application.NewAppUninstalledHandler(store, billingCache, logger))

	redirector := apiinfra.NewRedirector(cfg.HostURL, cfg.IsEmbedded)
	sessionMiddleware, err := apiinfra.SessionMiddleware(guard, redirector, cfg.AccessMode, recorder, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure session middleware")
	}
	authHandlers := apiinfra.NewAuthHandlers(installer, persister, cookie, redirector, cfg.IsEmbedded, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiinfra.AccessControlHeaders(cfg.IsEmbedded))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(registry))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth", authHandlers.Begin)
		r.Get("/auth/callback", authHandlers.Callback)
		r.Post("/webhooks", apiinfra.WebhookHandler(installer, webhookPubSub, logger))

		// Routes requiring an authorized session
		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware)
			r.Get("/session", apiinfra.SessionInfoHandler())
		})
	})

	// App pages
	r.Get("/ExitIframe", apiinfra.ExitIframeHandler(cfg.APIKey, cfg.HostURL, logger))
	r.With(apiinfra.EnsureInstalled(store, cfg.IsEmbedded, application.DefaultAuthPath, logger)).
		Get("/*", http.FileServer(http.Dir(cfg.FrontendDir)).ServeHTTP)

	logger.Info().
		Str("port", cfg.Port).
		Str("sessionStore", cfg.SessionStore).
		Bool("embedded", cfg.IsEmbedded).
		Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// openSessionStore connects the configured backend and prepares its schema
func openSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (sessionStore, func()) {
	switch cfg.SessionStore {
	case config.StorePostgres:
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		db, err := repository.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to ping PostgreSQL")
		}
		return repository.NewPostgresSessionRepository(db), func() { db.Close() }

	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		repo := repository.NewMongoSessionRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to create session indexes")
		}
		return repo, func() { client.Disconnect(context.Background()) }
	}
}
