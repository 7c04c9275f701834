package config

import "os"

// Config is the root configuration structure for the chunk CLI.
type Config struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" mapstructure:"log_file"`

	Chunking   ChunkingConfig   `yaml:"chunking" mapstructure:"chunking"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Images     ImagesConfig     `yaml:"images" mapstructure:"images"`
}

// ChunkingConfig holds the default chunking.Options values used by the CLI
// when flags are not passed explicitly.
type ChunkingConfig struct {
	MaxTokens           int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	OverlapTokens       int    `yaml:"overlap_tokens" mapstructure:"overlap_tokens"`
	TokenCountingMethod string `yaml:"token_counting_method" mapstructure:"token_counting_method"`
	ValidateChunks      bool   `yaml:"validate_chunks" mapstructure:"validate_chunks"`
	TableFormat         string `yaml:"table_format" mapstructure:"table_format"`
}

// LLMConfig holds the optional LLM provider configuration used for
// GenerateSummaries / ExtractKeywords.
type LLMConfig struct {
	Provider  string  `yaml:"provider" mapstructure:"provider"`
	Model     string  `yaml:"model" mapstructure:"model"`
	APIKey    *string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv string  `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// ResolveAPIKey returns the API key from config or falls back to the
// environment variable named by APIKeyEnv.
func (c *LLMConfig) ResolveAPIKey() string {
	if c.APIKey != nil && *c.APIKey != "" {
		return *c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

// ImagesConfig holds the optional image-description provider configuration
// used for GenerateImageDescriptions.
type ImagesConfig struct {
	Provider  string  `yaml:"provider" mapstructure:"provider"`
	Model     string  `yaml:"model" mapstructure:"model"`
	APIKey    *string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv string  `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// ResolveAPIKey returns the API key from config or falls back to the
// environment variable named by APIKeyEnv.
func (c *ImagesConfig) ResolveAPIKey() string {
	if c.APIKey != nil && *c.APIKey != "" {
		return *c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}
