package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Embeddings
	EmbedProvider string `yaml:"embed_provider"` // openai, gemini or none
	EmbedModel    string `yaml:"embed_model"`
	EmbedBaseURL  string `yaml:"embed_base_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`

	// Summaries
	GenerateProvider string `yaml:"generate_provider"` // gemini, claude or none
	GenerateModel    string `yaml:"generate_model"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicModel   string `yaml:"anthropic_model"`

	// Retrieval
	SparseWeight     float64 `yaml:"sparse_weight"`
	PositionBoost    float64 `yaml:"position_boost"`
	TopK             int     `yaml:"top_k"`
	ExpandQuery      bool    `yaml:"expand_query"`
	SummaryMaxLength int     `yaml:"summary_max_length"`
	MaxEmbedTokens   int     `yaml:"max_embed_tokens"`

	// OCR
	OCREnabled    bool   `yaml:"ocr_enabled"`
	TesseractPath string `yaml:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
	OCRDPI        int    `yaml:"ocr_dpi"`

	// Worker pool
	WorkerCount      int `yaml:"worker_count"`
	MaxQueueSize     int `yaml:"max_queue_size"`
	MaxConcurrentOCR int `yaml:"max_concurrent_ocr"`
	MaxConcurrentLLM int `yaml:"max_concurrent_llm"`

	// Deadline for each external-service call
	ServiceTimeout time.Duration `yaml:"service_timeout"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Finished reports
	ResultsDB string `yaml:"results_db"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:             "8090",
		EmbedProvider:    "none",
		EmbedModel:       "text-embedding-3-small",
		GenerateProvider: "none",
		GenerateModel:    "gemini-2.5-flash",
		AnthropicModel:   "claude-sonnet-4-5-20250929",
		SparseWeight:     0.3,
		PositionBoost:    0.1,
		TopK:             5,
		ExpandQuery:      true,
		SummaryMaxLength: 150,
		MaxEmbedTokens:   2000,
		OCREnabled:       true,
		TesseractPath:    "tesseract",
		PdftoppmPath:     "pdftoppm",
		OCRDPI:           150,
		WorkerCount:      4,
		MaxQueueSize:     100,
		MaxConcurrentOCR: 4,
		MaxConcurrentLLM: 5,
		ServiceTimeout:   60 * time.Second,
		MaxUploadBytes:   52428800, // 50MB
		JobTTL:           1 * time.Hour,
		ResultsDB:        "docinsight.db",
	}
}

// Load applies, in order: defaults, the YAML file named by DOCINSIGHT_CONFIG,
// and environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("DOCINSIGHT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCINSIGHT_API_KEY", cfg.APIKey)

	cfg.EmbedProvider = envOr("EMBED_PROVIDER", cfg.EmbedProvider)
	cfg.EmbedModel = envOr("EMBED_MODEL", cfg.EmbedModel)
	cfg.EmbedBaseURL = envOr("EMBED_BASE_URL", cfg.EmbedBaseURL)
	cfg.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.OpenAIAPIKey)

	cfg.GenerateProvider = envOr("GENERATE_PROVIDER", cfg.GenerateProvider)
	cfg.GenerateModel = envOr("GENERATE_MODEL", cfg.GenerateModel)
	cfg.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)

	cfg.SparseWeight = envFloat("SPARSE_WEIGHT", cfg.SparseWeight)
	cfg.PositionBoost = envFloat("POSITION_BOOST", cfg.PositionBoost)
	cfg.TopK = envInt("TOP_K", cfg.TopK)
	cfg.ExpandQuery = envBool("EXPAND_QUERY", cfg.ExpandQuery)
	cfg.SummaryMaxLength = envInt("SUMMARY_MAX_LENGTH", cfg.SummaryMaxLength)
	cfg.MaxEmbedTokens = envInt("MAX_EMBED_TOKENS", cfg.MaxEmbedTokens)

	cfg.OCREnabled = envBool("OCR_ENABLED", cfg.OCREnabled)
	cfg.TesseractPath = envOr("TESSERACT_PATH", cfg.TesseractPath)
	cfg.PdftoppmPath = envOr("PDFTOPPM_PATH", cfg.PdftoppmPath)
	cfg.OCRDPI = envInt("OCR_DPI", cfg.OCRDPI)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentOCR = envInt("MAX_CONCURRENT_OCR", cfg.MaxConcurrentOCR)
	cfg.MaxConcurrentLLM = envInt("MAX_CONCURRENT_LLM", cfg.MaxConcurrentLLM)

	cfg.ServiceTimeout = envDuration("SERVICE_TIMEOUT", cfg.ServiceTimeout)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.ResultsDB = envOr("RESULTS_DB", cfg.ResultsDB)

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults replaces non-positive numeric settings with defaults.
func (c *Config) applyDefaults() {
	d := Defaults()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.SummaryMaxLength <= 0 {
		c.SummaryMaxLength = d.SummaryMaxLength
	}
	if c.MaxEmbedTokens <= 0 {
		c.MaxEmbedTokens = d.MaxEmbedTokens
	}
	if c.OCRDPI <= 0 {
		c.OCRDPI = d.OCRDPI
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentOCR <= 0 {
		c.MaxConcurrentOCR = d.MaxConcurrentOCR
	}
	if c.MaxConcurrentLLM <= 0 {
		c.MaxConcurrentLLM = d.MaxConcurrentLLM
	}
	if c.ServiceTimeout <= 0 {
		c.ServiceTimeout = d.ServiceTimeout
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
}

// Validate checks settings shared by the CLI and the server.
func (c Config) Validate() error {
	if c.SparseWeight < 0 || c.SparseWeight > 1 {
		return fmt.Errorf("SPARSE_WEIGHT must be in [0,1], got %v", c.SparseWeight)
	}
	if c.PositionBoost < 0 {
		return fmt.Errorf("POSITION_BOOST must not be negative, got %v", c.PositionBoost)
	}
	switch c.EmbedProvider {
	case "none", "":
	case "openai":
		if c.OpenAIAPIKey == "" && c.EmbedBaseURL == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for EMBED_PROVIDER=openai")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for EMBED_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown EMBED_PROVIDER %q", c.EmbedProvider)
	}
	switch c.GenerateProvider {
	case "none", "":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for GENERATE_PROVIDER=gemini")
		}
	case "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for GENERATE_PROVIDER=claude")
		}
	default:
		return fmt.Errorf("unknown GENERATE_PROVIDER %q", c.GenerateProvider)
	}
	return nil
}

// ValidateServer additionally requires the API key.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCINSIGHT_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
