package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log          LogConfig          `mapstructure:"log"          validate:"required"`
	LLM          LLMConfig          `mapstructure:"llm"          validate:"required"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" validate:"required"`
	Checkpoint   CheckpointConfig   `mapstructure:"checkpoint"   validate:"required"`
	Batch        BatchConfig        `mapstructure:"batch"`
	Sink         SinkConfig         `mapstructure:"sink"         validate:"required"`
	Server       ServerConfig       `mapstructure:"server"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// APIKeys is the credential pool; one execution lane per key.
	APIKeys            []string      `mapstructure:"api_keys"             validate:"required,min=1,dive,required"`
	ModelName          string        `mapstructure:"model_name"           validate:"required"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path" validate:"required"`
	CheckCatalogPath   string        `mapstructure:"check_catalog_path"   validate:"required"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"         validate:"gt=0"`
}

// OrchestratorConfig controls lane fan-out, retries and the quality gate.
type OrchestratorConfig struct {
	Mode                 string        `mapstructure:"mode"                    validate:"required,oneof=interactive batch"`
	MaxLanes             int           `mapstructure:"max_lanes"               validate:"gte=1,lte=64"`
	MaxAttempts          int           `mapstructure:"max_attempts"            validate:"gte=1"`
	RetryBase            time.Duration `mapstructure:"retry_base"              validate:"gt=0"`
	GateThreshold        int           `mapstructure:"gate_threshold"          validate:"gte=0"`
	AcceptOnRetryCeiling bool          `mapstructure:"accept_on_retry_ceiling"`
	RegenerateOnReject   bool          `mapstructure:"regenerate_on_reject"`
	MinCallInterval      time.Duration `mapstructure:"min_call_interval"       validate:"gte=0"`
}

// CheckpointConfig selects and configures the durable progress store.
type CheckpointConfig struct {
	Backend     string   `mapstructure:"backend"      validate:"required,oneof=file postgres s3"`
	Path        string   `mapstructure:"path"         validate:"required_if=Backend file"`
	DatabaseURL string   `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	Namespace   string   `mapstructure:"namespace"    validate:"required"`
	S3          S3Config `mapstructure:"s3"`
}

// S3Config configures the object-store checkpoint backend.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// BatchConfig configures the asynchronous batch-submission mode.
type BatchConfig struct {
	EndpointURL   string        `mapstructure:"endpoint_url"    validate:"omitempty,url"`
	JobFile       string        `mapstructure:"job_file"`
	PollInterval  time.Duration `mapstructure:"poll_interval"   validate:"gt=0"`
	MaxPollErrors int           `mapstructure:"max_poll_errors" validate:"gte=1"`
	ListenAddr    string        `mapstructure:"listen_addr"`
}

// SinkConfig configures the tabular result output.
type SinkConfig struct {
	Path            string `mapstructure:"path"             validate:"required"`
	IncludeRejected bool   `mapstructure:"include_rejected"`
}

// ServerConfig contains the progress HTTP server settings.
// An empty ProgressAddr disables the server.
type ServerConfig struct {
	ProgressAddr string `mapstructure:"progress_addr"`
}

// TracingConfig selects the OpenTelemetry exporter.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=none stdout"`
}
