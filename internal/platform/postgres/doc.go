// Package postgres provides PostgreSQL-backed checkpoint and batch job
// stores, the schema migrations they depend on, and the mapping from
// driver errors to store errors.
package postgres
