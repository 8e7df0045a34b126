package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	GigaChat  GigaChatConfig
	Ollama    OllamaConfig
	Embedding EmbeddingConfig
	Triage    TriageConfig
	Journal   JournalConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
	// File enables rotating file output in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LLMConfig selects the chat model used for field extraction.
type LLMConfig struct {
	UseMock    bool
	Provider   string // "ollama" or "gigachat"
	MaxRetries int
	RetryDelay time.Duration
}

type OllamaConfig struct {
	Host  string
	Model string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

type EmbeddingConfig struct {
	Strategy    string // "auto", "dense" or "sparse"
	ModelPath   string
	VocabPath   string
	RuntimePath string
}

type TriageConfig struct {
	KBPath              string
	TopK                int
	KnownIssueThreshold float64
}

type JournalConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work for containers.
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(p.int("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(p.int("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ticket_triage"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LLM: LLMConfig{
			UseMock:    p.bool("USE_MOCK_LLM", false),
			Provider:   strings.ToLower(getEnv("LLM_PROVIDER", "ollama")),
			MaxRetries: p.int("LLM_MAX_RETRIES", 2),
			RetryDelay: time.Duration(p.int("LLM_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		},
		Ollama: OllamaConfig{
			Host:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnv("OLLAMA_MODEL", "llama2"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: p.bool("GIGACHAT_INSECURE_SKIP_VERIFY", false),
		},
		Embedding: EmbeddingConfig{
			Strategy:    strings.ToLower(getEnv("EMBEDDING_STRATEGY", "auto")),
			ModelPath:   getEnv("EMBEDDING_MODEL_PATH", "models/all-MiniLM-L6-v2/model.onnx"),
			VocabPath:   getEnv("EMBEDDING_VOCAB_PATH", "models/all-MiniLM-L6-v2/vocab.txt"),
			RuntimePath: getEnv("ONNXRUNTIME_LIB_PATH", "models/libonnxruntime.so"),
		},
		Triage: TriageConfig{
			KBPath:              getEnv("KB_PATH", "kb/kb.json"),
			TopK:                p.int("TRIAGE_TOP_K", 3),
			KnownIssueThreshold: p.float("TRIAGE_KNOWN_ISSUE_THRESHOLD", 0.30),
		},
		Journal: JournalConfig{
			Enabled: p.bool("JOURNAL_ENABLED", false),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  p.int("LOG_MAX_SIZE_MB", 100),
			MaxBackups: p.int("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: p.int("LOG_MAX_AGE_DAYS", 28),
		},
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the parsers cannot express.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama", "gigachat":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q: want ollama or gigachat", c.LLM.Provider)
	}
	switch c.Embedding.Strategy {
	case "auto", "dense", "sparse":
	default:
		return fmt.Errorf("invalid EMBEDDING_STRATEGY %q: want auto, dense or sparse", c.Embedding.Strategy)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must be >= 0, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RetryDelay < 0 {
		return fmt.Errorf("LLM_RETRY_DELAY_MS must be >= 0, got %s", c.LLM.RetryDelay)
	}
	if c.Triage.TopK < 1 {
		return fmt.Errorf("TRIAGE_TOP_K must be >= 1, got %d", c.Triage.TopK)
	}
	if c.Triage.KnownIssueThreshold < -1 || c.Triage.KnownIssueThreshold > 1 {
		return fmt.Errorf("TRIAGE_KNOWN_ISSUE_THRESHOLD must be within [-1, 1], got %v", c.Triage.KnownIssueThreshold)
	}
	if !c.LLM.UseMock && c.LLM.Provider == "gigachat" && c.GigaChat.APIKey == "" {
		return fmt.Errorf("GIGACHAT_API_KEY is required when LLM_PROVIDER=gigachat")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) float(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) bool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}
