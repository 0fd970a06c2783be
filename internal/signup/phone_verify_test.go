// File: internal/signup/phone_verify_test.go
package signup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
	"github.com/forgelabs-io/accountforge/internal/sms"
)

// fakeProvider scripts the PhoneProvider interface.
type fakeProvider struct {
	mu          sync.Mutex
	country     string
	requestErr  error
	reuseErr    error
	pollErr     error
	code        string
	requests    int
	reuses      int
	polls       int
	polledIDs   []string
	cancels     int
	markUsed    int
	markUsedErr error
}

func (f *fakeProvider) CheapestCountry(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.country == "" {
		return "151"
	}
	return f.country
}

func (f *fakeProvider) RequestNumber(ctx context.Context, country string) (*sms.VerificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &sms.VerificationRequest{
		ID:      fmt.Sprintf("act-%d", f.requests),
		Number:  fmt.Sprintf("5691234567%d", f.requests),
		Country: country,
		Status:  sms.StatusPending,
	}, nil
}

func (f *fakeProvider) ReuseNumber(ctx context.Context, prev *sms.VerificationRequest) (*sms.VerificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reuses++
	if f.reuseErr != nil {
		return nil, f.reuseErr
	}
	return &sms.VerificationRequest{
		ID:      fmt.Sprintf("extra-%d", f.reuses),
		Number:  prev.Number,
		Country: prev.Country,
		Status:  sms.StatusPending,
	}, nil
}

func (f *fakeProvider) PollForCode(ctx context.Context, req *sms.VerificationRequest, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	f.polledIDs = append(f.polledIDs, req.ID)
	if f.pollErr != nil {
		return "", f.pollErr
	}
	req.Status = sms.StatusCodeReceived
	req.Code = f.code
	return f.code, nil
}

func (f *fakeProvider) MarkUsed(ctx context.Context, req *sms.VerificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markUsed++
	if f.markUsedErr != nil {
		return f.markUsedErr
	}
	req.Status = sms.StatusUsed
	return nil
}

func (f *fakeProvider) Cancel(ctx context.Context, req *sms.VerificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	req.Status = sms.StatusCancelled
	return nil
}

func newPhoneStage(t *testing.T, provider *fakeProvider) (*PhoneVerification, *sms.ReusePool) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Browser.ShortWait = time.Millisecond
	cfg.Browser.ElementTimeout = time.Millisecond
	pool := sms.NewReusePool(cfg.SMS.ReuseWindow)
	return NewPhoneVerification(provider, pool, cfg.SMS, cfg.Browser, zap.NewNop()), pool
}

func TestPhoneVerification_Execute(t *testing.T) {
	t.Parallel()

	t.Run("should verify with a fresh number and pool it", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{code: "443322"}
		stage, pool := newPhoneStage(t, provider)
		b := newFakeBrowser()
		b.visible["phone input"] = true
		state := &RunState{}

		res := stage.Execute(context.Background(), b, state)
		require.True(t, res.OK(), "unexpected error: %v", res.Err)

		require.NotNil(t, state.Phone)
		assert.Equal(t, sms.StatusUsed, state.Phone.Status)
		assert.Equal(t, []string{state.Phone.Number}, b.filled("phone input"))
		assert.Equal(t, []string{"443322"}, b.filled("code input"))
		assert.Equal(t, 1, provider.markUsed)
		assert.Equal(t, 1, pool.Len(), "used number joins the reuse pool")
	})

	t.Run("should reactivate a pooled number instead of buying a fresh lease", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{code: "101010"}
		stage, pool := newPhoneStage(t, provider)
		pool.Put(&sms.VerificationRequest{
			ID: "old-act", Number: "56955555555", Status: sms.StatusUsed, Code: "111111",
		}, "tg")

		b := newFakeBrowser()
		b.visible["phone input"] = true
		state := &RunState{}

		res := stage.Execute(context.Background(), b, state)
		require.True(t, res.OK(), "unexpected error: %v", res.Err)
		assert.Zero(t, provider.requests, "no fresh lease while the pool has stock")
		assert.Equal(t, 1, provider.reuses)
		assert.Equal(t, "56955555555", state.Phone.Number)
		assert.Equal(t, "extra-1", state.Phone.ID, "reuse must run on a new activation")
		assert.Equal(t, []string{"extra-1"}, provider.polledIDs, "the spent activation must never be polled again")
		assert.Equal(t, []string{"101010"}, b.filled("code input"), "the old code must not be replayed")
		assert.Equal(t, 1, pool.Len(), "the number stays pooled for other services")
	})

	t.Run("should fall back to a fresh lease when reactivation fails", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{code: "202020", reuseErr: errors.New("EARLY_CANCEL_DENIED")}
		stage, pool := newPhoneStage(t, provider)
		pool.Put(&sms.VerificationRequest{ID: "old-act", Number: "56955555555", Status: sms.StatusUsed}, "tg")

		b := newFakeBrowser()
		b.visible["phone input"] = true
		state := &RunState{}

		res := stage.Execute(context.Background(), b, state)
		require.True(t, res.OK(), "unexpected error: %v", res.Err)
		assert.Equal(t, 1, provider.reuses)
		assert.Equal(t, 1, provider.requests)
		assert.Equal(t, "act-1", state.Phone.ID)
	})

	t.Run("should succeed trivially when no phone screen is shown", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{}
		stage, _ := newPhoneStage(t, provider)
		b := newFakeBrowser()

		res := stage.Execute(context.Background(), b, &RunState{})
		require.True(t, res.OK())
		assert.Zero(t, provider.requests)
	})

	t.Run("should fail permanently on provider exhaustion without cancelling", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{requestErr: fmt.Errorf("%w: NO_NUMBERS", sms.ErrProviderExhausted)}
		stage, _ := newPhoneStage(t, provider)
		b := newFakeBrowser()
		b.visible["phone input"] = true

		res := stage.Execute(context.Background(), b, &RunState{})
		require.False(t, res.OK())
		assert.Equal(t, ClassPermanent, res.Class)
		assert.ErrorIs(t, res.Err, sms.ErrProviderExhausted)
		assert.Zero(t, provider.cancels, "nothing was leased, nothing to cancel")
	})

	t.Run("should cancel the lease and retry transiently on code timeout", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{pollErr: sms.ErrCodeTimeout}
		stage, pool := newPhoneStage(t, provider)
		b := newFakeBrowser()
		b.visible["phone input"] = true
		state := &RunState{}

		res := stage.Execute(context.Background(), b, state)
		require.False(t, res.OK())
		assert.Equal(t, ClassTransient, res.Class)
		assert.Equal(t, 1, provider.cancels, "abandoned lease must be cancelled")
		assert.Zero(t, pool.Len())
	})

	t.Run("should cancel the lease when the form rejects the number", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{code: "000000"}
		stage, _ := newPhoneStage(t, provider)
		b := newFakeBrowser()
		b.visible["phone input"] = true
		b.visible["phone verification error"] = true

		res := stage.Execute(context.Background(), b, &RunState{})
		require.False(t, res.OK())
		assert.Equal(t, ClassTransient, res.Class)
		assert.Equal(t, 1, provider.cancels)
		assert.Zero(t, provider.polls, "no point polling for a rejected number")
	})

	t.Run("should keep the number out of the pool when completion fails", func(t *testing.T) {
		t.Parallel()
		provider := &fakeProvider{code: "123456", markUsedErr: errors.New("provider down")}
		stage, pool := newPhoneStage(t, provider)
		b := newFakeBrowser()
		b.visible["phone input"] = true

		res := stage.Execute(context.Background(), b, &RunState{})
		require.True(t, res.OK(), "the account side still verified")
		assert.Zero(t, pool.Len())
	})
}
