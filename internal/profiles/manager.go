// File: internal/profiles/manager.go
// Description: Owns the lifecycle of remote browser profiles: acquisition with
// ready-polling and a bounded retry budget, and idempotent release.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
)

// ErrProfileUnavailable is returned when the control service cannot hand out a
// working profile within the configured retry budget (quota exhaustion or
// persistent transport errors).
var ErrProfileUnavailable = errors.New("profiles: no profile available")

// Status describes where a profile is in its lifecycle.
type Status string

const (
	StatusAvailable Status = "available"
	StatusInUse     Status = "in-use"
	StatusReleased  Status = "released"
)

// Profile is a remote, persistent browser identity. Endpoint is the CDP
// websocket of its running browser instance.
type Profile struct {
	ID       string
	Name     string
	Status   Status
	Endpoint string
}

// Manager acquires and releases profiles through the control service. A
// profile is owned exclusively by one pipeline run between Acquire and
// Release.
type Manager struct {
	client *Client
	cfg    config.ProfilesConfig
	logger *zap.Logger

	mu       sync.Mutex
	released map[string]struct{}
}

// NewManager creates a profile manager on top of a control-service client.
func NewManager(client *Client, cfg config.ProfilesConfig, logger *zap.Logger) *Manager {
	return &Manager{
		client:   client,
		cfg:      cfg,
		logger:   logger.Named("profile_manager"),
		released: make(map[string]struct{}),
	}
}

// Acquire creates a fresh profile, starts its browser instance, and waits for
// the remote instance to report a connection endpoint. Each attempt that fails
// part-way cleans up after itself before retrying. After the configured budget
// is spent it fails with ErrProfileUnavailable.
func (m *Manager) Acquire(ctx context.Context) (*Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= m.cfg.AcquireAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		profile, err := m.acquireOnce(ctx)
		if err == nil {
			m.logger.Info("profile acquired",
				zap.String("profile_id", profile.ID),
				zap.Int("attempt", attempt))
			return profile, nil
		}

		lastErr = err
		m.logger.Warn("profile acquisition attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, lastErr)
}

func (m *Manager) acquireOnce(ctx context.Context) (*Profile, error) {
	name := "forge-" + uuid.NewString()[:8]

	id, err := m.client.CreateProfile(ctx, name, m.cfg.GroupID, m.cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	if err := m.client.StartBrowser(ctx, id); err != nil {
		m.discard(ctx, id)
		return nil, err
	}

	endpoint, err := m.waitForEndpoint(ctx, id)
	if err != nil {
		m.discard(ctx, id)
		return nil, err
	}

	return &Profile{
		ID:       id,
		Name:     name,
		Status:   StatusInUse,
		Endpoint: endpoint,
	}, nil
}

// waitForEndpoint polls the active-browser listing until the profile's CDP
// endpoint appears or the ready timeout elapses.
func (m *Manager) waitForEndpoint(ctx context.Context, id string) (string, error) {
	deadline := time.Now().Add(m.cfg.ReadyTimeout)
	ticker := time.NewTicker(m.cfg.ReadyPollEvery)
	defer ticker.Stop()

	for {
		endpoint, err := m.client.ConnectionEndpoint(ctx, id)
		if err != nil {
			return "", err
		}
		if endpoint != "" {
			return endpoint, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("browser for profile %s not ready within %s", id, m.cfg.ReadyTimeout)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// discard tears down a half-acquired profile. Errors are logged only; the
// caller is already on a failure path.
func (m *Manager) discard(ctx context.Context, id string) {
	if err := m.client.StopBrowser(ctx, id); err != nil {
		m.logger.Debug("stop browser during discard failed", zap.String("profile_id", id), zap.Error(err))
	}
	if err := m.client.DeleteProfile(ctx, id); err != nil {
		m.logger.Warn("delete profile during discard failed", zap.String("profile_id", id), zap.Error(err))
	}
}

// Release returns the profile to the service, stopping its browser and,
// depending on configuration, deleting it. It is idempotent: releasing twice,
// or releasing a profile that was never fully acquired, is a no-op and never
// an error, so cleanup paths can call it unconditionally.
func (m *Manager) Release(ctx context.Context, p *Profile) {
	if p == nil {
		return
	}

	m.mu.Lock()
	if _, done := m.released[p.ID]; done {
		m.mu.Unlock()
		return
	}
	m.released[p.ID] = struct{}{}
	m.mu.Unlock()

	if err := m.client.StopBrowser(ctx, p.ID); err != nil {
		m.logger.Warn("stop browser on release failed", zap.String("profile_id", p.ID), zap.Error(err))
	}
	if m.cfg.DeleteOnRelease {
		if err := m.client.DeleteProfile(ctx, p.ID); err != nil {
			m.logger.Warn("delete profile on release failed", zap.String("profile_id", p.ID), zap.Error(err))
		}
	}

	p.Status = StatusReleased
	m.logger.Info("profile released", zap.String("profile_id", p.ID))
}

// HealthCheck verifies the control service is reachable before a batch of
// runs starts.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.client.CheckHealth(ctx)
}
