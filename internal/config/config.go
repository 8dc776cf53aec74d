package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ragline/orchestrator/internal/embeddings"
	"github.com/ragline/orchestrator/internal/llm"
	"github.com/ragline/orchestrator/internal/modes"
	"github.com/ragline/orchestrator/internal/session"
	"github.com/ragline/orchestrator/internal/tracing"
	"github.com/ragline/orchestrator/internal/vectordb"
	"github.com/ragline/orchestrator/internal/websearch"
)

// Config is the full orchestrator configuration, loaded from a YAML file with
// RAGLINE_* environment overrides.
type Config struct {
	Server struct {
		Addr        string `mapstructure:"addr"`
		MetricsAddr string `mapstructure:"metrics_addr"`
	} `mapstructure:"server"`

	Temporal struct {
		HostPort              string `mapstructure:"host_port"`
		Namespace             string `mapstructure:"namespace"`
		TaskQueue             string `mapstructure:"task_queue"`
		MaxConcurrentRetrieve int    `mapstructure:"max_concurrent_retrieve"`
	} `mapstructure:"temporal"`

	Retrieval struct {
		PerBackendTimeout time.Duration    `mapstructure:"per_backend_timeout"`
		GlobalTimeout     time.Duration    `mapstructure:"global_timeout"`
		ContextBudget     int              `mapstructure:"context_budget"`
		Limit             int              `mapstructure:"limit"`
		Thresholds        modes.Thresholds `mapstructure:"thresholds"`
	} `mapstructure:"retrieval"`

	Prompts struct {
		OverridesPath string `mapstructure:"overrides_path"`
	} `mapstructure:"prompts"`

	Session    session.Config    `mapstructure:"session"`
	Embeddings embeddings.Config `mapstructure:"embeddings"`
	VectorDB   vectordb.Config   `mapstructure:"vectordb"`
	WebSearch  websearch.Config  `mapstructure:"websearch"`
	LLM        llm.Config        `mapstructure:"llm"`
	Tracing    tracing.Config    `mapstructure:"tracing"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// Load reads the config file from CONFIG_PATH (default config/ragline.yaml)
// and applies RAGLINE_* env overrides, e.g. RAGLINE_TEMPORAL_HOST_PORT.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/ragline.yaml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("RAGLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env cover a dev setup.
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":2112")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "ragline-queries")
	v.SetDefault("temporal.max_concurrent_retrieve", 32)

	v.SetDefault("retrieval.per_backend_timeout", "10s")
	v.SetDefault("retrieval.global_timeout", "30s")
	v.SetDefault("retrieval.context_budget", 8000)
	v.SetDefault("retrieval.limit", 5)
	v.SetDefault("retrieval.thresholds.min_items", 1)
	v.SetDefault("retrieval.thresholds.min_relevance", 0.0)

	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.max_history", 50)

	v.SetDefault("embeddings.default_model", "text-embedding-3-small")
	v.SetDefault("embeddings.timeout", "5s")
	v.SetDefault("embeddings.cache_ttl", "1h")

	v.SetDefault("vectordb.enabled", true)
	v.SetDefault("vectordb.host", "localhost")
	v.SetDefault("vectordb.port", 6333)
	v.SetDefault("vectordb.collection", "knowledge_chunks")
	v.SetDefault("vectordb.top_k", 5)
	v.SetDefault("vectordb.timeout", "5s")

	v.SetDefault("websearch.timeout", "10s")
	v.SetDefault("websearch.max_results", 5)
	v.SetDefault("websearch.rate_per_sec", 5)
	v.SetDefault("websearch.rate_burst", 10)

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
