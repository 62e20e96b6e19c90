//go:build integration

// Package testdb provides helpers for database integration tests: locating
// the test database, applying the schema, and isolating each test in a
// transaction that is rolled back afterwards.
//
// Tests using it must carry the integration build tag and are skipped when
// QUIZGEN_TEST_DATABASE_URL is unset.
package testdb
