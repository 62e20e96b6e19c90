package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

func TestMockGeneratorDefaults(t *testing.T) {
	t.Parallel()
	m := &MockGenerator{Content: domain.RawTextContent("q")}

	got, err := m.Generate(context.Background(), json.RawMessage(`1`), "k1")
	require.NoError(t, err)
	assert.Equal(t, "q", got.Text)

	m.Err = errors.New("boom")
	_, err = m.Generate(context.Background(), json.RawMessage(`2`), "k2")
	assert.EqualError(t, err, "boom")

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, []string{"k1", "k2"}, m.Credentials())
	assert.JSONEq(t, `2`, string(m.Calls()[1].Payload))
}

func TestMockGeneratorConcurrentCalls(t *testing.T) {
	t.Parallel()
	m := &MockGenerator{
		GenerateFn: func(_ context.Context, payload json.RawMessage, _ string) (domain.Content, error) {
			return domain.StructuredContent(payload), nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Generate(context.Background(), json.RawMessage(`{}`), "k")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.CallCount())
	assert.Equal(t, []string{"k"}, m.Credentials())
}

func TestMockChecker(t *testing.T) {
	t.Parallel()
	m := &MockChecker{Results: map[string]bool{"clarity": true}}
	got, err := m.Check(context.Background(), domain.RawTextContent("q"), nil, "k")
	require.NoError(t, err)
	assert.True(t, got["clarity"])

	m.CheckFn = func(context.Context, domain.Content, json.RawMessage, string) (map[string]bool, error) {
		return nil, errors.New("unavailable")
	}
	_, err = m.Check(context.Background(), domain.RawTextContent("q"), nil, "k")
	assert.Error(t, err)
	assert.Equal(t, 2, m.CallCount())
}
