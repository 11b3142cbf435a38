package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dyike/BondCortex/consts"
)

var (
	ErrMissingAPIKey   = errors.New("api key not configured")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

type Config struct {
	DataDir   string `json:"data_dir"`
	BondsPath string `json:"bonds_path"`

	LLMProvider  string `json:"llm_provider"`
	BackendURL   string `json:"backend_url"` // openai and deepseek only
	AdvisorModel string `json:"advisor_model"`
	SearchModel  string `json:"search_model"`

	SearchTemperature float32 `json:"search_temperature"`
	SearchMaxTokens   int     `json:"search_max_tokens"`

	// MaxToolRounds caps how many tool rounds a single conversation may run.
	MaxToolRounds     int  `json:"max_tool_rounds"`
	FirstToolCallOnly bool `json:"first_tool_call_only"`

	// InstructionsPath replaces the built-in advisor instruction when set.
	InstructionsPath string `json:"instructions_path"`

	ListenAddr     string        `json:"listen_addr"`
	AllowOrigins   string        `json:"allow_origins"`
	RequestTimeout time.Duration `json:"request_timeout"`

	Debug            bool `json:"debug"`
	EinoDebugEnabled bool `json:"eino_debug_enabled"`

	// Credentials only come from the environment and are never written to disk.
	OpenAIAPIKey   string `json:"-"`
	DeepSeekAPIKey string `json:"-"`
	GeminiAPIKey   string `json:"-"`
}

func DefaultConfig() *Config {
	cfg := DefaultConfigWithRoot(currentDir())

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns the built-in defaults with data paths rooted at dir.
// The environment is not consulted.
func DefaultConfigWithRoot(dir string) *Config {
	dataDir := filepath.Join(dir, "data")
	return &Config{
		DataDir:   dataDir,
		BondsPath: filepath.Join(dataDir, "bonds.csv"),

		LLMProvider:  consts.ProviderOpenAI,
		AdvisorModel: consts.DefaultAdvisorModel,
		SearchModel:  consts.DefaultSearchModel,

		SearchTemperature: 0.7,
		SearchMaxTokens:   500,

		MaxToolRounds:     8,
		FirstToolCallOnly: false,

		ListenAddr:     ":8000",
		AllowOrigins:   "*",
		RequestTimeout: 2 * time.Minute,
	}
}

func currentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.BondsPath = filepath.Join(val, "bonds.csv")
	}
	if val := os.Getenv("BONDS_PATH"); val != "" {
		c.BondsPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("ADVISOR_MODEL"); val != "" {
		c.AdvisorModel = val
	}
	if val := os.Getenv("SEARCH_MODEL"); val != "" {
		c.SearchModel = val
	}

	if val := os.Getenv("SEARCH_TEMPERATURE"); val != "" {
		if v, err := strconv.ParseFloat(val, 32); err == nil {
			c.SearchTemperature = float32(v)
		}
	}
	if val := os.Getenv("SEARCH_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.SearchMaxTokens = v
		}
	}
	if val := os.Getenv("MAX_TOOL_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxToolRounds = v
		}
	}
	if val := os.Getenv("FIRST_TOOL_CALL_ONLY"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.FirstToolCallOnly = enabled
		}
	}
	if val := os.Getenv("INSTRUCTIONS_PATH"); val != "" {
		c.InstructionsPath = val
	}

	if val := os.Getenv("LISTEN_ADDR"); val != "" {
		c.ListenAddr = val
	}
	if val := os.Getenv("ALLOW_ORIGINS"); val != "" {
		c.AllowOrigins = val
	}
	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.RequestTimeout = d
		}
	}

	if val := os.Getenv("BONDCORTEX_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		c.GeminiAPIKey = val
	}
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case consts.ProviderOpenAI:
		return c.OpenAIAPIKey
	case consts.ProviderDeepSeek:
		return c.DeepSeekAPIKey
	case consts.ProviderGemini:
		return c.GeminiAPIKey
	}
	return ""
}

// Validate reports the first configuration problem found, credentials included.
func (c *Config) Validate() error {
	if err := c.ValidateSettings(); err != nil {
		return err
	}
	if strings.TrimSpace(c.APIKey()) == "" {
		return fmt.Errorf("%w for provider %s", ErrMissingAPIKey, c.LLMProvider)
	}
	return nil
}

// ValidateSettings checks everything a config file can hold. Credentials are
// not consulted.
func (c *Config) ValidateSettings() error {
	switch c.LLMProvider {
	case consts.ProviderOpenAI, consts.ProviderDeepSeek, consts.ProviderGemini:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLMProvider)
	}
	if strings.TrimSpace(c.AdvisorModel) == "" || strings.TrimSpace(c.SearchModel) == "" {
		return fmt.Errorf("advisor and search models are required")
	}
	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("max_tool_rounds must be positive, got %d", c.MaxToolRounds)
	}
	if c.SearchMaxTokens <= 0 {
		return fmt.Errorf("search_max_tokens must be positive, got %d", c.SearchMaxTokens)
	}
	if c.SearchTemperature < 0 || c.SearchTemperature > 2 {
		return fmt.Errorf("search_temperature must be within [0, 2], got %v", c.SearchTemperature)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if strings.TrimSpace(c.BondsPath) == "" {
		return fmt.Errorf("bonds_path is required")
	}
	return nil
}
