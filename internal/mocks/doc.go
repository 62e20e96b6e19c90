// Package mocks provides hand-written test doubles for the generation
// interfaces. Each mock records its calls and delegates to an optional
// function field, falling back to fixed default values.
package mocks
