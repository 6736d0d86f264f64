// Package main is the entry point for the quoting API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/config"
	"github.com/capitalize-ai/quote-assistant/internal/conversation"
	"github.com/capitalize-ai/quote-assistant/internal/extract"
	"github.com/capitalize-ai/quote-assistant/internal/handler"
	"github.com/capitalize-ai/quote-assistant/internal/llm"
	"github.com/capitalize-ai/quote-assistant/internal/middleware"
	natsclient "github.com/capitalize-ai/quote-assistant/internal/nats"
	"github.com/capitalize-ai/quote-assistant/internal/pricing"
	"github.com/capitalize-ai/quote-assistant/internal/service"
	"github.com/capitalize-ai/quote-assistant/internal/store"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/tracing"
)

const serviceName = "quote-assistant"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("store", cfg.StoreDriver))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	var checks []handler.ReadinessCheck

	// Connect to NATS
	var natsClient *natsclient.Client
	var streamManager *natsclient.StreamManager
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			Name:     serviceName,
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		// Ensure JetStream stream exists
		streamManager = natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}

		checks = append(checks, handler.ReadinessCheck{
			Name: "nats",
			Check: func(context.Context) error {
				if !natsClient.IsConnected() {
					return fmt.Errorf("not connected")
				}
				return nil
			},
		})
	}

	// Conversation store
	convStore, storeCheck, err := newStore(ctx, cfg, natsClient, log)
	if err != nil {
		log.Fatal("failed to create conversation store", zap.Error(err))
	}
	if storeCheck != nil {
		checks = append(checks, *storeCheck)
	}

	// Catalog
	catalogStore := catalog.NewCachedStore(catalog.NewFileStore(cfg.CatalogPath), cfg.CatalogCacheTTL)
	if _, err := catalogStore.ListCategories(ctx); err != nil {
		log.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}
	resolver := catalog.NewResolver(catalogStore, log.Named("catalog"))
	engine := pricing.NewEngine(cfg.PricingRules())
	machine := conversation.NewMachine(resolver, engine, extract.NewValidator(log.Named("validator")), log.Named("conversation"))

	// Initialize entity extraction
	var extractor extract.Extractor
	if llmClient := newLLMClient(cfg, log); llmClient != nil {
		extractor = extract.NewLLMExtractor(llmClient, cfg.ExtractionModel, cfg.ExtractionTimeout)
		log.Info("entity extraction enabled", zap.String("provider", llmClient.Name()))
	} else {
		log.Warn("no LLM configured, entity extraction disabled")
	}

	// Initialize services
	var outbox service.Outbox = service.NewLogOutbox(log.Named("outbox"))
	if streamManager != nil {
		outbox = streamManager
	}
	quoteSvc := service.NewQuoteService(convStore, machine, extractor, outbox, log.Named("quotes"))
	if streamManager != nil {
		quoteSvc = quoteSvc.WithEventLog(streamManager)
	}
	priceSvc := service.NewPriceService(resolver, engine)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(checks...)
	messageHandler := handler.NewMessageHandler(quoteSvc, log)
	conversationHandler := handler.NewConversationHandler(quoteSvc, log)
	streamHandler := handler.NewStreamHandler(quoteSvc, log)
	catalogHandler := handler.NewCatalogHandler(resolver, log)
	quoteHandler := handler.NewQuoteHandler(priceSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.With(middleware.RequireScope(middleware.ScopeMessages)).Post("/messages", messageHandler.Receive)

		r.Route("/conversations/{userKey}", func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeConversations))
			r.Use(middleware.UserKeyRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/", conversationHandler.Get)
			r.Delete("/", conversationHandler.Delete)
			r.Get("/events", conversationHandler.Events)
			r.Get("/stream", streamHandler.Stream)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeCatalog))

			r.Get("/categories", catalogHandler.Categories)
			r.Get("/categories/{categoryID}/products", catalogHandler.Products)
			r.Get("/categories/{categoryID}/materials", catalogHandler.Materials)
			r.Get("/categories/{categoryID}/finishes", catalogHandler.Finishes)
			r.Get("/lookup", catalogHandler.Lookup)
		})

		r.With(middleware.RequireScope(middleware.ScopeCatalog)).Post("/quotes/price", quoteHandler.Price)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.IsDevelopment() {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

// newStore builds the configured conversation store and, where the driver
// has one, its readiness check.
func newStore(ctx context.Context, cfg *config.Config, nc *natsclient.Client, log *logger.Logger) (store.Store, *handler.ReadinessCheck, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemoryStore(cfg.ConversationTTL), nil, nil

	case config.StoreNATS:
		if nc == nil {
			return nil, nil, fmt.Errorf("store driver %q requires NATS_ENABLED", cfg.StoreDriver)
		}
		kv, err := nc.EnsureKeyValue(ctx, cfg.NATSKVBucket, cfg.ConversationTTL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewKVStore(kv, log.Named("store")), nil, nil

	case config.StoreRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedisStore(rdb, cfg.ConversationTTL, log.Named("store"))
		if err := rs.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return rs, &handler.ReadinessCheck{Name: "redis", Check: rs.Ping}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newLLMClient returns the preferred provider with a configured key, falling
// back to the other one. It returns nil when neither is configured.
func newLLMClient(cfg *config.Config, log *logger.Logger) llm.Client {
	keys := map[llm.Provider]string{
		llm.ProviderAnthropic: cfg.AnthropicAPIKey,
		llm.ProviderOpenAI:    cfg.OpenAIAPIKey,
	}
	order := []llm.Provider{llm.ProviderAnthropic, llm.ProviderOpenAI}
	if llm.Provider(cfg.DefaultLLM) == llm.ProviderOpenAI {
		order = []llm.Provider{llm.ProviderOpenAI, llm.ProviderAnthropic}
	}

	for _, p := range order {
		if keys[p] == "" {
			continue
		}
		client, err := llm.NewClient(p, keys[p])
		if err != nil {
			log.Warn("failed to create LLM client", zap.String("provider", string(p)), zap.Error(err))
			continue
		}
		return client
	}
	return nil
}
