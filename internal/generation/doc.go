// Package generation defines the boundary between the orchestration core and
// the external generative-text service: the Generator and Checker contracts
// and the transient/permanent error taxonomy that drives retry decisions.
// Concrete adapters (Gemini) live under internal/platform.
package generation
