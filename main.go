package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/activities"
	"github.com/ragline/orchestrator/internal/backends"
	"github.com/ragline/orchestrator/internal/circuitbreaker"
	"github.com/ragline/orchestrator/internal/config"
	"github.com/ragline/orchestrator/internal/embeddings"
	"github.com/ragline/orchestrator/internal/evidence"
	"github.com/ragline/orchestrator/internal/llm"
	"github.com/ragline/orchestrator/internal/prompt"
	"github.com/ragline/orchestrator/internal/server"
	"github.com/ragline/orchestrator/internal/session"
	temporaladapter "github.com/ragline/orchestrator/internal/temporal"
	"github.com/ragline/orchestrator/internal/tracing"
	"github.com/ragline/orchestrator/internal/vectordb"
	"github.com/ragline/orchestrator/internal/websearch"
	"github.com/ragline/orchestrator/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	circuitbreaker.StartMetricsCollection()

	if err := tracing.Initialize(cfg.Tracing, logger); err != nil {
		logger.Warn("Tracing initialization failed", zap.Error(err))
	}

	// Session store. The orchestrator runs without it, losing only chat
	// history.
	var sessions *session.Manager
	if cfg.Session.RedisAddr != "" {
		sessions, err = session.NewManager(cfg.Session, logger)
		if err != nil {
			logger.Warn("Session store unavailable, continuing without history", zap.Error(err))
			sessions = nil
		}
	}

	// Embedding cache shares the Redis deployment with the session store.
	var embCache embeddings.Cache
	if sessions != nil {
		cacheClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		embCache = embeddings.NewRedisCache(circuitbreaker.NewRedisWrapper(cacheClient, logger))
	}

	embedSvc := embeddings.NewService(cfg.Embeddings, embCache)
	vdb := vectordb.NewClient(cfg.VectorDB, logger)
	webMgr := websearch.NewManager(cfg.WebSearch, logger)
	llmClient := llm.NewClient(cfg.LLM, logger)

	registry := backends.NewRegistry(
		backends.NewKnowledgeAdapter(embedSvc, vdb, logger),
		backends.NewWebAdapter(webMgr, logger),
	)
	activities.SetInlineRegistry(registry)

	if cfg.Prompts.OverridesPath != "" {
		catalog := prompt.NewCatalog()
		if err := catalog.LoadOverrides(cfg.Prompts.OverridesPath); err != nil {
			logger.Warn("Prompt overrides not loaded", zap.Error(err))
		} else {
			workflows.SetPromptCatalog(catalog)
		}
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporaladapter.NewZapAdapter(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.Temporal.MaxConcurrentRetrieve,
	})
	w.RegisterWorkflow(workflows.RAGQueryWorkflow)

	acts := activities.NewActivities(registry, llmClient, sessions, logger)
	w.RegisterActivityWithOptions(acts.RetrieveEvidence, activity.RegisterOptions{Name: "RetrieveEvidence"})
	w.RegisterActivityWithOptions(acts.GenerateAnswer, activity.RegisterOptions{Name: "GenerateAnswer"})
	w.RegisterActivityWithOptions(acts.FetchHistory, activity.RegisterOptions{Name: "FetchHistory"})
	w.RegisterActivityWithOptions(acts.RecordRun, activity.RegisterOptions{Name: "RecordRun"})

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- w.Run(worker.InterruptCh())
	}()

	defaults := workflows.TaskInput{
		Backends:          backendSpecs(registry, cfg.Retrieval.Limit),
		PerBackendTimeout: cfg.Retrieval.PerBackendTimeout,
		GlobalTimeout:     cfg.Retrieval.GlobalTimeout,
		ContextBudget:     cfg.Retrieval.ContextBudget,
		Thresholds:        cfg.Retrieval.Thresholds,
	}
	runner := &server.TemporalRunner{
		Client:     temporalClient,
		TaskQueue:  cfg.Temporal.TaskQueue,
		RunTimeout: cfg.Retrieval.GlobalTimeout + 2*time.Minute,
	}
	api := server.NewServer(runner, sessions, defaults, logger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server failed", zap.Error(err))
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux}
	go func() {
		logger.Info("Metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-workerErr:
		if err != nil {
			logger.Error("Worker stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	if sessions != nil {
		_ = sessions.Close()
	}
}

// backendSpecs snapshots adapter capabilities into the workflow input so the
// workflow itself never touches the registry.
func backendSpecs(registry *backends.Registry, limit int) []workflows.BackendSpec {
	order := []evidence.BackendID{evidence.BackendKnowledge, evidence.BackendWeb}
	specs := make([]workflows.BackendSpec, 0, len(order))
	for _, id := range order {
		adapter, ok := registry.Get(id)
		if !ok {
			continue
		}
		caps := adapter.Capabilities()
		specs = append(specs, workflows.BackendSpec{
			ID:         id,
			WorkerPool: caps.WorkerPool,
			Inline:     caps.Inline,
			Limit:      limit,
		})
	}
	return specs
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = lvl
	}
	return zcfg.Build()
}
