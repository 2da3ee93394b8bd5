package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"resume-gap-analyzer/internal/shared/telemetry"
)

const (
	ProviderNebius = "nebius"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	QueueSQS      = "sqs"
	QueueRabbitMQ = "rabbitmq"
)

// Config holds application configuration.
type Config struct {
	Env             string
	Port            string
	CORSAllowOrigin []string
	APIToken        string

	LogLevel  string
	LogFormat string

	LLMProvider    string
	LLMModel       string
	LLMBaseURL     string
	LLMTemperature float32
	LLMTimeout     time.Duration
	LLMMaxAttempts int
	LLMRetryDelay  time.Duration
	// LLMCredential is the provider key resolved from the environment.
	LLMCredential    string
	CredentialPolicy string
	PromptVersion    string

	DatabaseURL string
	// DB pool overrides; zero keeps the profile default.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBPingTimeout     time.Duration

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	ReportArchive   bool

	QueueBackend      string
	SQSQueueURL       string
	RabbitMQURL       string
	RabbitMQQueue     string
	WorkerConcurrency int
	VisibilityTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type providerDefaults struct {
	baseURL       string
	model         string
	credentialEnv string
}

var providers = map[string]providerDefaults{
	ProviderNebius: {baseURL: "https://api.studio.nebius.ai/v1/", model: "meta-llama/Meta-Llama-3.1-8B-Instruct", credentialEnv: "NEBIUS_API_KEY"},
	ProviderOpenAI: {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini", credentialEnv: "OPENAI_API_KEY"},
	ProviderGemini: {model: "gemini-2.0-flash", credentialEnv: "GEMINI_API_KEY"},
}

// CredentialEnv names the environment variable holding provider's key.
func CredentialEnv(provider string) string {
	return providers[normalizeProvider(provider)].credentialEnv
}

// Load reads configuration from environment variables with sensible defaults.
// Values from CONFIG_FILE (or ./config.yaml) fill in keys missing from the
// environment.
func Load() Config {
	// Best-effort load of local env files for dev convenience. Existing
	// process variables are never overridden.
	for _, path := range []string{".env", "cmd/.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	file, err := readFile(path)
	if err != nil {
		telemetry.Warn("config.file_invalid", map[string]any{"path": path, "error": err.Error()})
	}
	return load(source{file: file})
}

// source resolves a key from the process environment, then the file overlay.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(s.file[key]); val != "" {
		return val
	}
	return def
}

func (s source) int(key string, def int) int {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func (s source) float(key string, def float64) float64 {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid_float", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func (s source) duration(key string, def time.Duration) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func (s source) bool(key string, def bool) bool {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func load(src source) Config {
	env := normalizeEnv(src.get("ENV", "dev"))
	provider := normalizeProvider(src.get("LLM_PROVIDER", ProviderNebius))
	defaults := providers[provider]

	cfg := Config{
		Env:             env,
		Port:            src.get("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(src.get("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		APIToken:        src.get("API_TOKEN", ""),

		LogLevel:  src.get("LOG_LEVEL", "info"),
		LogFormat: src.get("LOG_FORMAT", "json"),

		LLMProvider:      provider,
		LLMModel:         src.get("LLM_MODEL", defaults.model),
		LLMBaseURL:       src.get("LLM_BASE_URL", defaults.baseURL),
		LLMTemperature:   float32(src.float("LLM_TEMPERATURE", 0.7)),
		LLMTimeout:       time.Duration(src.int("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		LLMMaxAttempts:   max(1, src.int("LLM_MAX_ATTEMPTS", 1)),
		LLMRetryDelay:    time.Duration(src.int("LLM_RETRY_DELAY_MS", 300)) * time.Millisecond,
		LLMCredential:    src.get(defaults.credentialEnv, ""),
		CredentialPolicy: strings.ToLower(src.get("CREDENTIAL_POLICY", "lenient")),
		PromptVersion:    src.get("PROMPT_VERSION", "v1"),

		DatabaseURL:       src.get("DATABASE_URL", ""),
		DBMaxOpenConns:    src.int("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns:    src.int("DB_MAX_IDLE_CONNS", 0),
		DBConnMaxLifetime: src.duration("DB_CONN_MAX_LIFETIME", 0),
		DBConnMaxIdleTime: src.duration("DB_CONN_MAX_IDLE_TIME", 0),
		DBPingTimeout:     src.duration("DB_PING_TIMEOUT", 0),

		ObjectStoreType: normalizeStoreType(src.get("OBJECT_STORE", "local")),
		LocalStoreDir:   src.get("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       src.get("AWS_REGION", ""),
		S3Bucket:        src.get("S3_BUCKET", ""),
		S3Prefix:        src.get("S3_PREFIX", ""),
		SSEKMSKeyID:     src.get("SSE_KMS_KEY_ID", ""),
		ReportArchive:   src.bool("REPORT_ARCHIVE", true),

		QueueBackend:      normalizeQueue(src.get("QUEUE_BACKEND", "")),
		SQSQueueURL:       src.get("RA_SQS_QUEUE_URL", ""),
		RabbitMQURL:       src.get("RABBITMQ_URL", ""),
		RabbitMQQueue:     src.get("RABBITMQ_QUEUE", "gap-analysis-jobs"),
		WorkerConcurrency: max(1, src.int("RA_WORKER_CONCURRENCY", 4)),
		VisibilityTimeout: time.Duration(src.int("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", 1200)) * time.Second,
		ShutdownTimeout:   time.Duration(src.int("RA_SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	if env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}
	return cfg
}

// readFile decodes a flat YAML mapping of environment keys. An empty path is
// not an error.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	out := make(map[string]string, len(doc))
	for key, val := range doc {
		if val == nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(val)
	}
	return out, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderGemini:
		return ProviderGemini
	default:
		return ProviderNebius
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeQueue(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case QueueSQS:
		return QueueSQS
	case QueueRabbitMQ, "rabbit", "amqp":
		return QueueRabbitMQ
	default:
		return ""
	}
}
