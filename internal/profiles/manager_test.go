// File: internal/profiles/manager_test.go
package profiles

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
)

// fakeControlService scripts the control-service HTTP API for tests. It
// tracks calls per endpoint and can be told to fail profile creation.
type fakeControlService struct {
	mu           sync.Mutex
	createCalls  int
	startCalls   int
	stopCalls    int
	deleteCalls  int
	failCreate   bool
	readyAfter   int // active listing appears after this many polls
	activePolls  int
	nextID       int
	lastCreateID string
}

func (f *fakeControlService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"msg":"success","data":{}}`)
	})
	mux.HandleFunc("/api/v1/user/create", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.createCalls++
		if f.failCreate {
			fmt.Fprint(w, `{"code":-1,"msg":"quota exceeded"}`)
			return
		}
		f.nextID++
		f.lastCreateID = fmt.Sprintf("profile-%d", f.nextID)
		fmt.Fprintf(w, `{"code":0,"msg":"success","data":{"id":%q}}`, f.lastCreateID)
	})
	mux.HandleFunc("/api/v1/user/delete", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleteCalls++
		f.mu.Unlock()
		fmt.Fprint(w, `{"code":0,"msg":"success","data":{}}`)
	})
	mux.HandleFunc("/api/v1/browser/start", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.startCalls++
		f.mu.Unlock()
		fmt.Fprint(w, `{"code":0,"msg":"success","data":{}}`)
	})
	mux.HandleFunc("/api/v1/browser/stop", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.stopCalls++
		f.mu.Unlock()
		fmt.Fprint(w, `{"code":0,"msg":"success","data":{}}`)
	})
	mux.HandleFunc("/api/v1/browser/local-active", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.activePolls++
		if f.activePolls <= f.readyAfter {
			fmt.Fprint(w, `{"code":0,"msg":"success","data":{"list":[]}}`)
			return
		}
		fmt.Fprintf(w, `{"code":0,"msg":"success","data":{"list":[{"user_id":%q,"ws":{"puppeteer":"ws://127.0.0.1:9222/devtools"}}]}}`, f.lastCreateID)
	})
	return mux
}

func (f *fakeControlService) counts() (create, start, stop, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.startCalls, f.stopCalls, f.deleteCalls
}

func newTestManager(t *testing.T, fake *fakeControlService, mutate func(*config.ProfilesConfig)) *Manager {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig().Profiles
	cfg.BaseURL = srv.URL
	cfg.ReadyTimeout = 2 * time.Second
	cfg.ReadyPollEvery = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	client := NewClient(srv.Client(), srv.URL, "test-key", zap.NewNop())
	return NewManager(client, cfg, zap.NewNop())
}

func TestManager_Acquire(t *testing.T) {
	t.Parallel()

	t.Run("should acquire a ready profile", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{readyAfter: 2}
		m := newTestManager(t, fake, nil)

		profile, err := m.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "profile-1", profile.ID)
		assert.Equal(t, StatusInUse, profile.Status)
		assert.Equal(t, "ws://127.0.0.1:9222/devtools", profile.Endpoint)
	})

	t.Run("should exhaust the retry budget and report unavailability", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{failCreate: true}
		m := newTestManager(t, fake, func(c *config.ProfilesConfig) {
			c.AcquireAttempts = 3
		})

		_, err := m.Acquire(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProfileUnavailable)

		create, _, _, _ := fake.counts()
		assert.Equal(t, 3, create, "every budgeted attempt should hit the service")
	})

	t.Run("should discard a profile whose browser never becomes ready", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{readyAfter: 1 << 30}
		m := newTestManager(t, fake, func(c *config.ProfilesConfig) {
			c.AcquireAttempts = 1
			c.ReadyTimeout = 50 * time.Millisecond
		})

		_, err := m.Acquire(context.Background())
		require.ErrorIs(t, err, ErrProfileUnavailable)

		_, start, stop, del := fake.counts()
		assert.Equal(t, 1, start)
		assert.Equal(t, 1, stop, "half-acquired profile should be stopped")
		assert.Equal(t, 1, del, "half-acquired profile should be deleted")
	})

	t.Run("should stop acquiring when the context is cancelled", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{readyAfter: 0}
		m := newTestManager(t, fake, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Acquire(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestManager_Release(t *testing.T) {
	t.Parallel()

	t.Run("should stop and delete exactly once", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{}
		m := newTestManager(t, fake, nil)
		profile := &Profile{ID: "profile-9", Status: StatusInUse}

		m.Release(context.Background(), profile)
		m.Release(context.Background(), profile)
		m.Release(context.Background(), profile)

		_, _, stop, del := fake.counts()
		assert.Equal(t, 1, stop, "repeat releases must not hit the service again")
		assert.Equal(t, 1, del)
		assert.Equal(t, StatusReleased, profile.Status)
	})

	t.Run("should tolerate a nil profile", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{}
		m := newTestManager(t, fake, nil)
		m.Release(context.Background(), nil)

		_, _, stop, del := fake.counts()
		assert.Zero(t, stop)
		assert.Zero(t, del)
	})

	t.Run("should keep the profile when deletion is disabled", func(t *testing.T) {
		t.Parallel()
		fake := &fakeControlService{}
		m := newTestManager(t, fake, func(c *config.ProfilesConfig) {
			c.DeleteOnRelease = false
		})

		m.Release(context.Background(), &Profile{ID: "profile-7", Status: StatusInUse})

		_, _, stop, del := fake.counts()
		assert.Equal(t, 1, stop)
		assert.Zero(t, del)
	})
}

func TestManager_HealthCheck(t *testing.T) {
	t.Parallel()
	fake := &fakeControlService{}
	m := newTestManager(t, fake, nil)
	assert.NoError(t, m.HealthCheck(context.Background()))
}
