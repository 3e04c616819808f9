package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"tara-tutor-be/pkg/tutor"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Tutor    TutorConfig
	Feedback FeedbackConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string // empty disables domain events
	RedisURL           string // empty keeps websocket fanout local
	JwtSecret          string // empty disables the admin API
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	OpenAI       string
	GoogleGemini string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "gemini" or "jina"
	OllamaBaseURL     string
	OllamaModel       string // embedding model
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string // e.g. "llama3", "gpt-4o-mini"
	LLMBaseURL        string
	Temperature       float64
	GeneratorTimeout  time.Duration
}

type TutorConfig struct {
	IndexBackend     string // "memory" or "pgvector"
	SessionTTL       time.Duration
	ChunkSize        int
	ChunkOverlap     int
	RetrievalTopK    int
	EmbedConcurrency int
	MaxUploadBytes   int
}

type FeedbackConfig struct {
	SpreadsheetID    string
	Range            string
	ValueInputOption string
	ClientID         string
	ClientSecret     string
	RefreshToken     string
}

// Enabled reports whether every Sheets credential is present.
func (f FeedbackConfig) Enabled() bool {
	return f.SpreadsheetID != "" && f.ClientID != "" && f.ClientSecret != "" && f.RefreshToken != ""
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			GeneratorTimeout:  getEnvAsDuration("GENERATOR_TIMEOUT", 60*time.Second),
		},
		Tutor: TutorConfig{
			IndexBackend:     getEnv("INDEX_BACKEND", "memory"),
			SessionTTL:       getEnvAsDuration("SESSION_TTL", 0),
			ChunkSize:        getEnvAsInt("CHUNK_SIZE", 1500),
			ChunkOverlap:     getEnvAsInt("CHUNK_OVERLAP", 200),
			RetrievalTopK:    getEnvAsInt("RETRIEVAL_TOP_K", 4),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
			MaxUploadBytes:   getEnvAsInt("MAX_UPLOAD_BYTES", 20*1024*1024),
		},
		Feedback: FeedbackConfig{
			SpreadsheetID:    getEnv("FEEDBACK_SPREADSHEET_ID", ""),
			Range:            getEnv("FEEDBACK_RANGE", "Sheet1!A:F"),
			ValueInputOption: getEnv("FEEDBACK_VALUE_INPUT_OPTION", "RAW"),
			ClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken:     getEnv("GOOGLE_REFRESH_TOKEN", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "tara-tutor-backend"),
		},
	}
}

// Validate rejects configurations the tutor cannot serve with. Errors wrap
// tutor.ErrMissingCredential when a required key is absent.
func (c *Config) Validate() error {
	if c.Ai.LLMProvider == "openai" && c.Keys.OpenAI == "" {
		return tutor.MissingCredentialError("OPENAI_API_KEY", "LLM_PROVIDER=openai")
	}
	if c.Ai.EmbeddingProvider == "gemini" && c.Keys.GoogleGemini == "" {
		return tutor.MissingCredentialError("GOOGLE_GEMINI_API_KEY", "EMBEDDING_PROVIDER=gemini")
	}
	if c.Ai.EmbeddingProvider == "jina" && c.Keys.Jina == "" {
		return tutor.MissingCredentialError("JINA_API_KEY", "EMBEDDING_PROVIDER=jina")
	}
	if c.Tutor.IndexBackend == "pgvector" && c.Database.Connection == "" {
		return tutor.MissingCredentialError("DB_CONNECTION_STRING", "INDEX_BACKEND=pgvector")
	}
	return nil
}

// EmbeddingAPIKey is the key of the selected embedding provider.
func (c *Config) EmbeddingAPIKey() string {
	switch c.Ai.EmbeddingProvider {
	case "gemini":
		return c.Keys.GoogleGemini
	case "jina":
		return c.Keys.Jina
	default:
		return ""
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
