package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/billing"
	"github.com/sentivibe/sentivibe-api/pkg/cache"
	"github.com/sentivibe/sentivibe-api/pkg/chat"
	"github.com/sentivibe/sentivibe-api/pkg/comparison"
	"github.com/sentivibe/sentivibe-api/pkg/config"
	"github.com/sentivibe/sentivibe-api/pkg/copilot"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/db/queries"
	"github.com/sentivibe/sentivibe-api/pkg/handlers"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/metrics"
	"github.com/sentivibe/sentivibe-api/pkg/search"
	"github.com/sentivibe/sentivibe-api/pkg/services"
	"github.com/sentivibe/sentivibe-api/pkg/usage"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

func main() {
	log.SetOutput(gin.DefaultWriter)
	log.SetFormatter(&log.JSONFormatter{})
	log.Info("Starting SentiVibe API...")

	cfg := config.LoadConfig()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		log.SetLevel(log.InfoLevel)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close(conn)

	if cfg.MigrationsEnabled {
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	ctx := context.Background()
	store := queries.NewStore(conn)

	redisCache := cache.New(cfg.RedisURL)
	defer redisCache.Close()

	videos, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey, cfg.YouTubeRPS)
	if err != nil {
		log.Fatalf("Failed to initialize YouTube client: %v", err)
	}

	llmClient, closeLLM, err := newLLMClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	defer closeLLM()
	llmClient = llm.WithMetrics(llmClient)

	searcher, err := search.NewClient(ctx, cfg.SearchAPIKey, cfg.SearchEngineID, redisCache)
	if err != nil {
		log.Fatalf("Failed to initialize search client: %v", err)
	}

	jwtService := services.NewJWTService(cfg.JwtSecret)
	analyzer := analysis.NewService(store, videos, llmClient)

	apiHandlers := handlers.NewHandlers(handlers.Handlers{
		Config:     cfg,
		Store:      store,
		JWT:        jwtService,
		Gate:       usage.NewGate(store),
		Analysis:   analyzer,
		Comparison: comparison.NewService(store, analyzer, llmClient),
		Chat:       chat.NewService(store, llmClient, searcher, redisCache, cfg.LLMDeepModel),
		Copilot:    copilot.NewService(store, llmClient, searcher, redisCache),
		Billing:    billing.NewProcessor(store, cfg.PaddlePaidPriceIDs),
		Cache:      redisCache,
		Ping:       conn.PingContext,
	})

	metrics.Register(prometheus.DefaultRegisterer, conn)

	router, err := handlers.NewRouter(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/health/ready", apiHandlers.Ready)
	router.GET("/metrics", metrics.Handler())
	handlers.RegisterRoutes(router, apiHandlers, jwtService)

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server listening on %s:%s", cfg.Host, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Chat streams can run long, so allow in-flight requests more time.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited gracefully.")
}

// newLLMClient builds the configured completion backend. The returned func
// releases its resources.
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, func(), error) {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				log.Warnf("Error closing Gemini client: %v", err)
			}
		}, nil
	default:
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}
