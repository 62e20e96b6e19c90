//go:build integration

package testdb

import (
	"os"

	"github.com/phrazzld/scry-quizgen/internal/redact"
)

// DatabaseURLEnv names the variable holding the test database URL.
const DatabaseURLEnv = "QUIZGEN_TEST_DATABASE_URL"

// DatabaseURL returns the configured test database URL, or "".
func DatabaseURL() string {
	return os.Getenv(DatabaseURLEnv)
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return DatabaseURL() == ""
}

// isCIEnvironment reports whether the tests run under a CI system, where a
// missing database is a configuration error rather than a reason to skip.
func isCIEnvironment() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

func maskDatabaseURL(u string) string {
	return redact.String(u)
}
