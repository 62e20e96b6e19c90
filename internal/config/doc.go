// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the settings needed by the orchestrator, its stores and the
// Gemini adapters while keeping configuration details separate from
// orchestration logic.
package config
