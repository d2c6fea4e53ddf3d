package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/patientiq/dashboard-api/pkg/validator"
)

const DefaultCORSOrigins = "http://localhost:8080,http://localhost:5173,http://localhost:3000"

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Weaviate      WeaviateConfig      `mapstructure:"weaviate"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Research      ResearchConfig      `mapstructure:"research"`
	Questionnaire QuestionnaireConfig `mapstructure:"questionnaire"`
	Messages      MessagesConfig      `mapstructure:"messages"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	SMTP          SMTPConfig          `mapstructure:"smtp"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
	APIKey         string        `mapstructure:"api_key"`
	CORSOrigins    string        `mapstructure:"cors_allow_origins"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	MetricsPrefix  string        `mapstructure:"metrics_prefix"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	Debug          bool          `mapstructure:"debug"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN prefers the URL form when one is configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	Scheme string `mapstructure:"scheme"`
	APIKey string `mapstructure:"api_key"`
}

type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Provider     string        `mapstructure:"provider" validate:"oneof=openai gemini"`
	Endpoint     string        `mapstructure:"endpoint"`
	Token        string        `mapstructure:"token"`
	Model        string        `mapstructure:"model"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// BaseURL is the OpenAI-compatible root, always ending in /v1.
func (l LLMConfig) BaseURL() string {
	endpoint := strings.TrimRight(l.Endpoint, "/")
	if endpoint == "" || strings.HasSuffix(endpoint, "/v1") {
		return endpoint
	}
	return endpoint + "/v1"
}

type EmbeddingConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Token      string `mapstructure:"token"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// BaseURL mirrors LLMConfig.BaseURL.
func (e EmbeddingConfig) BaseURL() string {
	return LLMConfig{Endpoint: e.Endpoint}.BaseURL()
}

type ResearchConfig struct {
	TavilyAPIKey  string        `mapstructure:"tavily_api_key"`
	TavilyURL     string        `mapstructure:"tavily_url"`
	NCBIAPIKey    string        `mapstructure:"ncbi_api_key"`
	EUtilsURL     string        `mapstructure:"eutils_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	DefaultDoctor string        `mapstructure:"default_doctor"`
}

type QuestionnaireConfig struct {
	Dir string `mapstructure:"dir"`
}

// MessagesConfig names the dashboard user that board messages are sent as.
type MessagesConfig struct {
	SenderID        string `mapstructure:"sender_id"`
	SenderName      string `mapstructure:"sender_name"`
	PublicRecipient string `mapstructure:"public_recipient"`
	ListLimit       int    `mapstructure:"list_limit"`
}

type WorkerConfig struct {
	AlertSchedule string        `mapstructure:"alert_schedule"`
	ScanTimeout   time.Duration `mapstructure:"scan_timeout"`
	// BackfillInterval of zero disables periodic vector backfill.
	BackfillInterval time.Duration `mapstructure:"backfill_interval"`
	HealthPort       int           `mapstructure:"health_port"`
	OutboxBatchSize  int           `mapstructure:"outbox_batch_size"`
	OutboxPoll       time.Duration `mapstructure:"outbox_poll"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AlertTo  string `mapstructure:"alert_to"`
}

// Enabled reports whether alert emails can be sent.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.AlertTo != ""
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// env holds the flat variable names the dashboard deployment already uses.
type env struct {
	DatabaseURL            string `envconfig:"DATABASE_URL"`
	RedisURL               string `envconfig:"REDIS_URL"`
	APIKey                 string `envconfig:"API_KEY"`
	CORSAllowOrigins       string `envconfig:"CORS_ALLOW_ORIGINS"`
	LLMProvider            string `envconfig:"LLM_PROVIDER"`
	LLMEndpoint            string `envconfig:"LLM_ENDPOINT"`
	LLMToken               string `envconfig:"LLM_TOKEN"`
	LLMName                string `envconfig:"LLM_NAME"`
	GeminiAPIKey           string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModelEndpoint string `envconfig:"EMBEDDING_MODEL_ENDPOINT"`
	EmbeddingModelToken    string `envconfig:"EMBEDDING_MODEL_TOKEN"`
	EmbeddingModelName     string `envconfig:"EMBEDDING_MODEL_NAME"`
	TavilyAPIKey           string `envconfig:"TAVILY_API_KEY"`
	NCBIAPIKey             string `envconfig:"NCBI_API_KEY"`
	WeaviateHost           string `envconfig:"WEAVIATE_HOST"`
	WeaviateScheme         string `envconfig:"WEAVIATE_SCHEME"`
	WeaviateAPIKey         string `envconfig:"WEAVIATE_API_KEY"`
	QuestionnaireDir       string `envconfig:"QUESTIONNAIRE_DIR"`
	SMTPHost               string `envconfig:"SMTP_HOST"`
	SMTPPort               int    `envconfig:"SMTP_PORT"`
	SMTPUser               string `envconfig:"SMTP_USER"`
	SMTPPassword           string `envconfig:"SMTP_PASSWORD"`
	AlertEmailTo           string `envconfig:"ALERT_EMAIL_TO"`
	Port                   int    `envconfig:"PORT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("server.shutdown_grace", 5*time.Second)
	v.SetDefault("server.cors_allow_origins", DefaultCORSOrigins)
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.metrics_prefix", "patientiq")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "patientiq")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("weaviate.host", "localhost:8080")
	v.SetDefault("weaviate.scheme", "http")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "meta/llama-3.1-8b-instruct")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.cache_ttl", 10*time.Minute)

	v.SetDefault("embedding.model", "nvidia/llama-3.2-nv-embedqa-1b-v2")
	v.SetDefault("embedding.dimensions", 2048)

	v.SetDefault("research.tavily_url", "https://api.tavily.com/search")
	v.SetDefault("research.eutils_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("research.http_timeout", 30*time.Second)
	v.SetDefault("research.default_doctor", "Tiffany Mitchell")

	v.SetDefault("questionnaire.dir", "data/questionnaires")

	v.SetDefault("messages.sender_id", "1")
	v.SetDefault("messages.sender_name", "Tiffany Mitchell")
	v.SetDefault("messages.public_recipient", "All Scripps Staff")
	v.SetDefault("messages.list_limit", 50)

	v.SetDefault("worker.alert_schedule", "@every 1h")
	v.SetDefault("worker.scan_timeout", 10*time.Minute)
	v.SetDefault("worker.backfill_interval", 15*time.Minute)
	v.SetDefault("worker.health_port", 8081)
	v.SetDefault("worker.outbox_batch_size", 50)
	v.SetDefault("worker.outbox_poll", 5*time.Second)
	v.SetDefault("worker.retry_attempts", 3)
	v.SetDefault("worker.retry_delay", time.Second)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "alerts@patientiq.local")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads .env, then config.yaml (optional), then the environment.
// An empty path searches "." and "./config".
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.applyEnv(e)

	if err := validator.New().Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %s", validator.Describe(err))
	}

	return &cfg, nil
}

func (c *Config) applyEnv(e env) {
	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}

	override(&c.Database.URL, e.DatabaseURL)
	override(&c.Redis.URL, e.RedisURL)
	override(&c.Server.APIKey, e.APIKey)
	override(&c.Server.CORSOrigins, e.CORSAllowOrigins)
	override(&c.LLM.Provider, e.LLMProvider)
	override(&c.LLM.Endpoint, e.LLMEndpoint)
	override(&c.LLM.Token, e.LLMToken)
	override(&c.LLM.Model, e.LLMName)
	override(&c.LLM.GeminiAPIKey, e.GeminiAPIKey)
	override(&c.Embedding.Endpoint, e.EmbeddingModelEndpoint)
	override(&c.Embedding.Token, e.EmbeddingModelToken)
	override(&c.Embedding.Model, e.EmbeddingModelName)
	override(&c.Research.TavilyAPIKey, e.TavilyAPIKey)
	override(&c.Research.NCBIAPIKey, e.NCBIAPIKey)
	override(&c.Weaviate.Host, e.WeaviateHost)
	override(&c.Weaviate.Scheme, e.WeaviateScheme)
	override(&c.Weaviate.APIKey, e.WeaviateAPIKey)
	override(&c.Questionnaire.Dir, e.QuestionnaireDir)
	override(&c.SMTP.Host, e.SMTPHost)
	override(&c.SMTP.User, e.SMTPUser)
	override(&c.SMTP.Password, e.SMTPPassword)
	override(&c.SMTP.AlertTo, e.AlertEmailTo)

	if e.SMTPPort > 0 {
		c.SMTP.Port = e.SMTPPort
	}
	if e.Port > 0 {
		c.Server.Port = e.Port
	}
}

// AllowedOrigins splits the comma separated CORS origin list.
func (s ServerConfig) AllowedOrigins() []string {
	raw := s.CORSOrigins
	if strings.TrimSpace(raw) == "" {
		raw = DefaultCORSOrigins
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
