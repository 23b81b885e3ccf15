package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ariesstack/aries-engine/internal/models"
)

// Config captures the settings required to boot the remediation engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Agent     AgentConfig     `yaml:"agent"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the gRPC ops listener and metrics endpoint.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// AgentConfig controls the monitoring and remediation loop.
type AgentConfig struct {
	EndpointsPath    string        `yaml:"endpointsPath"`
	Interval         time.Duration `yaml:"interval"`
	FailureThreshold int           `yaml:"failureThreshold"`
	MaxConcurrent    int           `yaml:"maxConcurrent"`
	ConnectTimeout   time.Duration `yaml:"connectTimeout"`
	ExecTimeout      time.Duration `yaml:"execTimeout"`
}

// LLMConfig configures the chat completion backend.
type LLMConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	TopP        float32       `yaml:"topP"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding backend used by retrieval.
type EmbeddingConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig locates the SQLite database holding the knowledge graph,
// retrieval documents and prompt templates.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig controls escalation webhooks.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhookURL"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Redis-backed caching of retrieval searches.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	SearchTTL    time.Duration `yaml:"searchTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ARIES_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadEndpoints reads the endpoint inventory. A missing or unparseable file
// is a startup failure; the engine never runs with a guessed fleet.
func LoadEndpoints(path string) ([]models.EndpointRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file %s: %w", path, err)
	}

	var doc struct {
		Endpoints []models.EndpointRecord `yaml:"endpoints"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse endpoints file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(doc.Endpoints))
	for _, ep := range doc.Endpoints {
		if ep.ID == "" {
			return nil, fmt.Errorf("endpoints file %s: endpoint with empty id", path)
		}
		if _, dup := seen[ep.ID]; dup {
			return nil, fmt.Errorf("endpoints file %s: duplicate endpoint id %q", path, ep.ID)
		}
		seen[ep.ID] = struct{}{}
	}
	return doc.Endpoints, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Agent: AgentConfig{
			EndpointsPath:    "configs/endpoints.yaml",
			Interval:         time.Minute,
			FailureThreshold: 5,
			MaxConcurrent:    8,
			ConnectTimeout:   10 * time.Second,
			ExecTimeout:      30 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			TopP:        0.9,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Model:   "text-embedding-3-small",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{Path: "data/aries.db"},
		Notify:  NotifyConfig{Timeout: 10 * time.Second},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			SearchTTL:    2 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARIES_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ARIES_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ARIES_ENGINE_ENDPOINTS_PATH"); v != "" {
		cfg.Agent.EndpointsPath = v
	}
	if v := os.Getenv("ARIES_ENGINE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Agent.Interval = d
		}
	}
	if v := os.Getenv("ARIES_ENGINE_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.FailureThreshold = n
		}
	}
	if v := os.Getenv("ARIES_ENGINE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.MaxConcurrent = n
		}
	}
	if v := os.Getenv("ARIES_ENGINE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("ARIES_ENGINE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ARIES_ENGINE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ARIES_ENGINE_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("ARIES_ENGINE_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("ARIES_ENGINE_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("ARIES_ENGINE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("ARIES_ENGINE_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("ARIES_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ARIES_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("ARIES_ENGINE_CACHE_SEARCH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SearchTTL = d
		}
	}
}
