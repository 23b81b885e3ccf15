package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariesstack/aries-engine/internal/agent"
	"github.com/ariesstack/aries-engine/internal/api"
	"github.com/ariesstack/aries-engine/internal/cache"
	"github.com/ariesstack/aries-engine/internal/config"
	"github.com/ariesstack/aries-engine/internal/connectors"
	"github.com/ariesstack/aries-engine/internal/knowledge"
	"github.com/ariesstack/aries-engine/internal/llm"
	"github.com/ariesstack/aries-engine/internal/metrics"
	"github.com/ariesstack/aries-engine/internal/notify"
	"github.com/ariesstack/aries-engine/internal/planner"
	"github.com/ariesstack/aries-engine/internal/retrieval"
	"github.com/ariesstack/aries-engine/internal/storage"
	"github.com/ariesstack/aries-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting aries-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(ctx, cache.RedisOptions{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to open storage", slog.String("path", cfg.Storage.Path), slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	graph, err := knowledge.NewGraph(ctx, store)
	if err != nil {
		logger.Error("failed to load knowledge graph", slog.Any("error", err))
		os.Exit(1)
	}
	if err := knowledge.Seed(ctx, graph); err != nil {
		logger.Error("failed to seed knowledge graph", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("knowledge graph ready",
		slog.Int("nodes", graph.NodeCount()),
		slog.Int("edges", graph.EdgeCount()))

	embedder := llm.NewOpenAIEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model)
	docStore, err := retrieval.NewStore(ctx, store, embedder)
	if err != nil {
		logger.Error("failed to load retrieval store", slog.Any("error", err))
		os.Exit(1)
	}
	if err := retrieval.SeedDocuments(ctx, docStore); err != nil {
		logger.Error("failed to seed retrieval documents", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("retrieval store ready", slog.Int("documents", docStore.Count()))
	searcher := retrieval.NewCachedStore(docStore, cacheProvider, cfg.Cache.SearchTTL)

	if err := planner.SeedTemplates(ctx, store); err != nil {
		logger.Error("failed to seed prompt templates", slog.Any("error", err))
		os.Exit(1)
	}

	completionClient := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	plannerSvc := planner.New(completionClient, searcher, store, llm.GenerationParams{
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)

	notifier := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	if cfg.Notify.WebhookURL == "" {
		logger.Warn("no webhook URL configured, escalations will be dropped")
	}

	endpoints, err := config.LoadEndpoints(cfg.Agent.EndpointsPath)
	if err != nil {
		logger.Error("failed to load endpoint inventory", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("endpoint inventory loaded", slog.Int("endpoints", len(endpoints)))

	loop := agent.New(cfg.Agent, endpoints, connectors.ForEndpoint, plannerSvc, graph, notifier, logger)

	server, err := api.NewServer(cfg.Server)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go loop.Run(ctx)
	server.SetServing(true)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("aries-engine stopped")
}
