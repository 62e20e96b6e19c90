package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "QUIZGEN"

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("llm.api_keys", []string{})
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.prompt_template_path", "prompts/question.tmpl")
	v.SetDefault("llm.check_catalog_path", "prompts/checks.yaml")
	v.SetDefault("llm.call_timeout", "90s")

	v.SetDefault("orchestrator.mode", "interactive")
	v.SetDefault("orchestrator.max_lanes", 8)
	v.SetDefault("orchestrator.max_attempts", 3)
	v.SetDefault("orchestrator.retry_base", "1s")
	v.SetDefault("orchestrator.gate_threshold", 1)
	v.SetDefault("orchestrator.accept_on_retry_ceiling", false)
	v.SetDefault("orchestrator.regenerate_on_reject", false)
	v.SetDefault("orchestrator.min_call_interval", "0s")

	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.path", "out/checkpoint.jsonl")
	v.SetDefault("checkpoint.database_url", "")
	v.SetDefault("checkpoint.namespace", "default")
	v.SetDefault("checkpoint.s3.endpoint", "")
	v.SetDefault("checkpoint.s3.bucket", "")
	v.SetDefault("checkpoint.s3.prefix", "quizgen")
	v.SetDefault("checkpoint.s3.access_key", "")
	v.SetDefault("checkpoint.s3.secret_key", "")
	v.SetDefault("checkpoint.s3.use_ssl", true)

	v.SetDefault("batch.endpoint_url", "")
	v.SetDefault("batch.job_file", "out/batch_job.json")
	v.SetDefault("batch.poll_interval", "30s")
	v.SetDefault("batch.max_poll_errors", 10)
	v.SetDefault("batch.listen_addr", ":8090")

	v.SetDefault("sink.path", "out/results.csv")
	v.SetDefault("sink.include_rejected", true)

	v.SetDefault("server.progress_addr", "")
	v.SetDefault("tracing.exporter", "none")
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the file.
// An empty path means "./quizgen.yaml if present".
// Returns a populated Config struct or an error if loading/validation fails.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quizgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct-tag validation over cfg.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
