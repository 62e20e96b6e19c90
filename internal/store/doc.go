// Package store holds the database plumbing shared by SQL-backed stores:
// the DBTX abstraction, generic store errors and transaction helpers.
package store
