// Package config loads service configuration from a YAML file, a .env file
// and the process environment.
//
// Viper reads the YAML file first; environment variables (including those
// loaded from .env through godotenv) override file values. Underscores in an
// environment variable name map onto nesting, so OPENAI_API_KEY can populate
// providers.openai.api_key.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("sttd", &cfg, config.WithConfigFile(path))
package config
