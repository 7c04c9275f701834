package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/docuchunk/docuchunk.log"

	DefaultMaxTokens           = 512
	DefaultOverlapTokens       = 64
	DefaultTokenCountingMethod = "cl100k"
	DefaultValidateChunks      = true
	DefaultTableFormat         = "markdown"

	DefaultLLMProvider  = "openai"
	DefaultLLMModel     = "gpt-4o-mini"
	DefaultLLMAPIKeyEnv = "OPENAI_API_KEY"

	DefaultImagesProvider  = "openai"
	DefaultImagesModel     = "gpt-4o-mini"
	DefaultImagesAPIKeyEnv = "OPENAI_API_KEY"
)

// NewDefaultConfig returns a Config populated with all default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Chunking: ChunkingConfig{
			MaxTokens:           DefaultMaxTokens,
			OverlapTokens:       DefaultOverlapTokens,
			TokenCountingMethod: DefaultTokenCountingMethod,
			ValidateChunks:      DefaultValidateChunks,
			TableFormat:         DefaultTableFormat,
		},
		LLM: LLMConfig{
			Provider:  DefaultLLMProvider,
			Model:     DefaultLLMModel,
			APIKeyEnv: DefaultLLMAPIKeyEnv,
		},
		Images: ImagesConfig{
			Provider:  DefaultImagesProvider,
			Model:     DefaultImagesModel,
			APIKeyEnv: DefaultImagesAPIKeyEnv,
		},
	}
}

// setDefaults registers all default configuration values with viper.
// Called during Init() before reading config files.
func setDefaults() {
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_file", DefaultLogFile)

	viper.SetDefault("chunking.max_tokens", DefaultMaxTokens)
	viper.SetDefault("chunking.overlap_tokens", DefaultOverlapTokens)
	viper.SetDefault("chunking.token_counting_method", DefaultTokenCountingMethod)
	viper.SetDefault("chunking.validate_chunks", DefaultValidateChunks)
	viper.SetDefault("chunking.table_format", DefaultTableFormat)

	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.model", DefaultLLMModel)
	viper.SetDefault("llm.api_key_env", DefaultLLMAPIKeyEnv)

	viper.SetDefault("images.provider", DefaultImagesProvider)
	viper.SetDefault("images.model", DefaultImagesModel)
	viper.SetDefault("images.api_key_env", DefaultImagesAPIKeyEnv)
}
