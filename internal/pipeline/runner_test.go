// File: internal/pipeline/runner_test.go
package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSaver struct {
	mu      sync.Mutex
	saved   []*RunResult
	saveErr error
}

func (m *mockSaver) SaveResult(ctx context.Context, result *RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, result)
	return m.saveErr
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("should execute the requested number of runs", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.Setup.onExecute = recordCredentials
		runner := NewRunner(f.build(), 2, nil, zap.NewNop())

		results, err := runner.Run(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, results, 5)

		seen := make(map[string]struct{})
		for _, r := range results {
			assert.Equal(t, OutcomeSuccess, r.Outcome)
			seen[r.RunID.String()] = struct{}{}
		}
		assert.Len(t, seen, 5, "every run gets its own id")
		assert.Equal(t, 5, f.Profiles.releaseCount())
	})

	t.Run("should persist every terminal result", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		saver := &mockSaver{}
		runner := NewRunner(f.build(), 1, saver, zap.NewNop())

		results, err := runner.Run(context.Background(), 3)
		require.NoError(t, err)
		assert.Len(t, results, 3)
		assert.Equal(t, 3, saver.count())
	})

	t.Run("should not abort the batch on persistence failures", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		saver := &mockSaver{saveErr: errors.New("db down")}
		runner := NewRunner(f.build(), 1, saver, zap.NewNop())

		results, err := runner.Run(context.Background(), 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("should reject a non-positive count", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		runner := NewRunner(f.build(), 1, nil, zap.NewNop())

		_, err := runner.Run(context.Background(), 0)
		assert.ErrorIs(t, err, ErrNoRuns)
	})

	t.Run("should report cancellation after in-flight runs finish", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		runner := NewRunner(f.build(), 1, nil, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		results, err := runner.Run(ctx, 3)
		assert.ErrorIs(t, err, context.Canceled)
		// Scheduling stops; whatever ran still produced terminal results.
		for _, r := range results {
			assert.NotEmpty(t, r.Outcome)
		}
	})
}
