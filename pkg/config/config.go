// Package config loads and validates the service configuration from a yaml
// file with ${ENV} expansion and .env support.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the recipe assistant service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Vector    VectorConfig    `yaml:"vector"`
	Rerank    RerankConfig    `yaml:"rerank"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Chat      ChatConfig      `yaml:"chat"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Type       string  `yaml:"type"` // "clova" or "openai"
	Model      string  `yaml:"model"`
	APIKey     string  `yaml:"api_key"`
	BaseURL    string  `yaml:"base_url"`
	Timeout    int     `yaml:"timeout"` // seconds
	MaxRetries int     `yaml:"max_retries"`
	RetryDelay float64 `yaml:"retry_delay"` // seconds
}

type EmbedderConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // seconds
}

type VectorConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	Timeout    int    `yaml:"timeout"` // seconds
}

type RerankConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type WebSearchConfig struct {
	Engine             string `yaml:"engine"` // naver, google, serper
	NaverClientID      string `yaml:"naver_client_id"`
	NaverClientSecret  string `yaml:"naver_client_secret"`
	GoogleAPIKey       string `yaml:"google_api_key"`
	GoogleSearchEngine string `yaml:"google_search_engine_id"`
	SerperAPIKey       string `yaml:"serper_api_key"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Enabled reports whether chat persistence is configured at all.
func (c *MySQLConfig) Enabled() bool {
	return c.Host != ""
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ChatConfig holds the dialog pipeline knobs.
type ChatConfig struct {
	RequestTimeout int `yaml:"request_timeout"` // seconds, per user message
	TopK           int `yaml:"top_k"`
	HistoryWindow  int `yaml:"history_window"`
}

func (c *ChatConfig) Deadline() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Load reads the config file (optional), expands environment references and
// applies defaults. An empty path yields a default config driven entirely by
// environment variables.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := expandEnvVars(string(raw))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.LLM.Type == "" {
		c.LLM.Type = "clova"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "HCX-003"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://clovastudio.stream.ntruss.com"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("CLOVA_API_KEY")
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.RetryDelay == 0 {
		c.LLM.RetryDelay = 1.0
	}

	if c.Embedder.Model == "" {
		c.Embedder.Model = "bge-m3"
	}
	if c.Embedder.BaseURL == "" {
		c.Embedder.BaseURL = "https://clovastudio.stream.ntruss.com"
	}
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = c.LLM.APIKey
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 10
	}

	if c.Vector.BaseURL == "" {
		c.Vector.BaseURL = os.Getenv("MILVUS_URI")
	}
	if c.Vector.APIKey == "" {
		c.Vector.APIKey = os.Getenv("MILVUS_TOKEN")
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "recipes"
	}
	if c.Vector.Timeout == 0 {
		c.Vector.Timeout = 10
	}

	if c.Rerank.BaseURL == "" {
		c.Rerank.BaseURL = "https://clovastudio.stream.ntruss.com"
	}
	if c.Rerank.APIKey == "" {
		c.Rerank.APIKey = c.LLM.APIKey
	}

	if c.WebSearch.Engine == "" {
		c.WebSearch.Engine = "serper"
	}
	if c.WebSearch.NaverClientID == "" {
		c.WebSearch.NaverClientID = os.Getenv("NAVER_CLIENT_ID")
	}
	if c.WebSearch.NaverClientSecret == "" {
		c.WebSearch.NaverClientSecret = os.Getenv("NAVER_CLIENT_SECRET")
	}
	if c.WebSearch.GoogleAPIKey == "" {
		c.WebSearch.GoogleAPIKey = os.Getenv("GOOGLE_SEARCH_API_KEY")
	}
	if c.WebSearch.GoogleSearchEngine == "" {
		c.WebSearch.GoogleSearchEngine = os.Getenv("GOOGLE_SEARCH_ENGINE_ID")
	}
	if c.WebSearch.SerperAPIKey == "" {
		c.WebSearch.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}

	if c.MySQL.Host == "" {
		c.MySQL.Host = os.Getenv("MYSQL_HOST")
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.User == "" {
		c.MySQL.User = os.Getenv("MYSQL_USER")
	}
	if c.MySQL.Password == "" {
		c.MySQL.Password = os.Getenv("MYSQL_PASSWORD")
	}
	if c.MySQL.Database == "" {
		c.MySQL.Database = os.Getenv("MYSQL_DATABASE")
	}

	if c.Chat.RequestTimeout == 0 {
		c.Chat.RequestTimeout = 20
	}
	if c.Chat.TopK == 0 {
		c.Chat.TopK = 3
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = 5
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Type {
	case "clova", "openai":
	default:
		return fmt.Errorf("unsupported llm type: %s", c.LLM.Type)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required")
	}
	switch c.WebSearch.Engine {
	case "naver", "google", "serper":
	default:
		return fmt.Errorf("unsupported web search engine: %s", c.WebSearch.Engine)
	}
	if c.Chat.RequestTimeout < 1 {
		return fmt.Errorf("chat request_timeout must be positive")
	}
	return nil
}
