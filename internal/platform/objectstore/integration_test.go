//go:build integration

package objectstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinioStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("QUIZGEN_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("QUIZGEN_TEST_S3_ENDPOINT not set")
	}

	ctx := context.Background()
	cfg := Config{
		Endpoint:  endpoint,
		Bucket:    "quizgen-it",
		AccessKey: os.Getenv("QUIZGEN_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("QUIZGEN_TEST_S3_SECRET_KEY"),
	}
	prefix := "it/" + uuid.NewString()

	s, err := New(ctx, cfg, prefix, nil)
	require.NoError(t, err)

	c := domain.RawTextContent("Q")
	require.NoError(t, s.Save(ctx, domain.Result{UnitID: "u1", Status: domain.UnitStatusAccepted, Content: &c}))
	require.NoError(t, s.Save(ctx, domain.Result{UnitID: "u1", Status: domain.UnitStatusFailed}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, got, "u1")
	assert.Equal(t, domain.UnitStatusAccepted, got["u1"].Status)
}
