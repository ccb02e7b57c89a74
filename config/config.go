// Package config loads gert's settings (viper) and credentials (envconfig).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every settings environment variable
const EnvPrefix = "GERT"

// DefaultRPCTools is the tool subset exposed over JSON-RPC
var DefaultRPCTools = []string{
	"wikipedia_search",
	"web_search",
	"call_consensus_query",
	"call_superconsensus",
	"lookup_past_conversations",
}

// Settings is the non-secret configuration
type Settings struct {
	Environment string                     `mapstructure:"environment"`
	LogLevel    string                     `mapstructure:"log_level"`
	LogFile     string                     `mapstructure:"log_file"`
	DataDir     string                     `mapstructure:"data_dir"`
	Storage     StorageSettings            `mapstructure:"storage"`
	Ollama      OllamaSettings             `mapstructure:"ollama"`
	Backends    map[string]BackendSettings `mapstructure:"backends"`
	Consensus   ConsensusSettings          `mapstructure:"consensus"`
	Turn        TurnSettings               `mapstructure:"turn"`
	Prompts     PromptSettings             `mapstructure:"prompts"`
	Files       FileSettings               `mapstructure:"files"`
	RPC         RPCSettings                `mapstructure:"rpc"`
}

// StorageSettings selects the conversation store
type StorageSettings struct {
	Backend     string `mapstructure:"backend"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// OllamaSettings configures the primary model
type OllamaSettings struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

// BackendSettings configures one consulted model
type BackendSettings struct {
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// ConsensusSettings configures the aggregator
type ConsensusSettings struct {
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	ScratchDir  string        `mapstructure:"scratch_dir"`
}

// TurnSettings configures the turn loop
type TurnSettings struct {
	TimeoutPolicy string  `mapstructure:"timeout_policy"`
	Temperature   float32 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
}

// PromptSettings locates the custom instructions file
type PromptSettings struct {
	CustomInstructions string `mapstructure:"custom_instructions"`
}

// FileSettings restricts the file tools
type FileSettings struct {
	AllowedDirs []string `mapstructure:"allowed_dirs"`
}

// RPCSettings configures the JSON-RPC front end
type RPCSettings struct {
	Addr  string   `mapstructure:"addr"`
	Tools []string `mapstructure:"tools"`
}

// Dir returns ~/.gert
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".gert"), nil
}

// New returns a viper instance with defaults, the GERT_ environment
// binding and the config file search path set.
func New() *viper.Viper {
	v := viper.New()

	dataDir := ".gert"
	if dir, err := Dir(); err == nil {
		dataDir = dir
	}

	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.redis_prefix", "gert")
	v.SetDefault("ollama.host", "")
	v.SetDefault("ollama.model", "qwen3:8b")
	v.SetDefault("backends.gemini.model", "gemini-2.5-pro")
	v.SetDefault("backends.gemini.max_tokens", 0)
	v.SetDefault("backends.openai.model", "gpt-5")
	v.SetDefault("backends.openai.max_tokens", 0)
	v.SetDefault("backends.grok.model", "grok-4")
	v.SetDefault("backends.grok.max_tokens", 0)
	v.SetDefault("backends.claude.model", "claude-sonnet-4-20250514")
	v.SetDefault("backends.claude.max_tokens", 1024)
	v.SetDefault("consensus.call_timeout", "10m")
	v.SetDefault("consensus.scratch_dir", os.TempDir())
	v.SetDefault("turn.timeout_policy", "abort")
	v.SetDefault("turn.temperature", 0.7)
	v.SetDefault("turn.max_tokens", 2048)
	v.SetDefault("prompts.custom_instructions", "custom_instructions.md")
	v.SetDefault("files.allowed_dirs", []string{"/tmp", "/var/tmp", "~/Downloads", "."})
	v.SetDefault("rpc.addr", "127.0.0.1:8765")
	v.SetDefault("rpc.tools", DefaultRPCTools)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	return v
}

// Load reads the config file (configFile, or config.yaml under ~/.gert if
// empty) and returns the merged settings. A missing default file is fine.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("storage.backend must be file or redis, got %q", s.Storage.Backend)
	}
	switch s.Turn.TimeoutPolicy {
	case "abort", "fold":
	default:
		return fmt.Errorf("turn.timeout_policy must be abort or fold, got %q", s.Turn.TimeoutPolicy)
	}
	if s.Consensus.CallTimeout <= 0 {
		return fmt.Errorf("consensus.call_timeout must be positive")
	}
	return nil
}

// Backend returns the settings for one consulted model
func (s *Settings) Backend(id string) BackendSettings {
	return s.Backends[id]
}
