// File: internal/signup/phone_verify.go
package signup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
	"github.com/forgelabs-io/accountforge/internal/sms"
)

// PhoneProvider is the slice of the verification provider the phone stage
// needs. Satisfied by *sms.Client.
type PhoneProvider interface {
	CheapestCountry(ctx context.Context) string
	RequestNumber(ctx context.Context, country string) (*sms.VerificationRequest, error)
	ReuseNumber(ctx context.Context, prev *sms.VerificationRequest) (*sms.VerificationRequest, error)
	PollForCode(ctx context.Context, req *sms.VerificationRequest, timeout time.Duration) (string, error)
	MarkUsed(ctx context.Context, req *sms.VerificationRequest) error
	Cancel(ctx context.Context, req *sms.VerificationRequest) error
}

// PhoneVerification drives the phone-number screen: lease a number, submit
// it, wait for the SMS code, submit the code. Numbers come from the reuse
// pool first; only when the pool is empty is a fresh lease bought in the
// currently cheapest country.
type PhoneVerification struct {
	provider PhoneProvider
	pool     *sms.ReusePool
	cfg      config.SMSConfig
	timings  config.BrowserConfig
	logger   *zap.Logger
}

// NewPhoneVerification builds the phone stage.
func NewPhoneVerification(provider PhoneProvider, pool *sms.ReusePool, cfg config.SMSConfig, timings config.BrowserConfig, logger *zap.Logger) *PhoneVerification {
	return &PhoneVerification{
		provider: provider,
		pool:     pool,
		cfg:      cfg,
		timings:  timings,
		logger:   logger.Named("phone_verify"),
	}
}

func (s *PhoneVerification) Name() string { return "phone-verification" }

// Execute completes phone verification. A flow variant that never asks for
// a phone number completes trivially. Provider exhaustion is permanent;
// a code that never arrives cancels the lease and reports transient so the
// stage budget can try another number.
func (s *PhoneVerification) Execute(ctx context.Context, b Browser, state *RunState) Result {
	present, err := b.WaitFor(phoneLocators.PhoneInput, s.timings.ElementTimeout)
	if err != nil {
		return Transient(err)
	}
	if !present {
		s.logger.Info("No phone verification screen shown, continuing.")
		return Success()
	}

	req, fromPool, err := s.leaseNumber(ctx)
	if err != nil {
		if errors.Is(err, sms.ErrProviderExhausted) {
			return Permanent(err)
		}
		return Transient(err)
	}
	state.Phone = req
	s.logger.Info("Submitting phone number.",
		zap.String("number", req.Number),
		zap.Bool("reused", fromPool),
	)

	if err := b.Fill(phoneLocators.PhoneInput, req.Number); err != nil {
		return s.abandon(ctx, req, err)
	}
	if err := b.Click(phoneLocators.NextButton); err != nil {
		return s.abandon(ctx, req, err)
	}

	if rejected, _ := b.WaitFor(phoneLocators.VerificationError, s.timings.ShortWait); rejected {
		return s.abandon(ctx, req, fmt.Errorf("number %s rejected by signup form", req.Number))
	}

	code, err := s.provider.PollForCode(ctx, req, s.cfg.CodeTimeout)
	if err != nil {
		if errors.Is(err, sms.ErrCodeTimeout) {
			return s.abandon(ctx, req, err)
		}
		return Transient(err)
	}

	if err := b.Fill(phoneLocators.CodeInput, code); err != nil {
		return Transient(err)
	}
	if err := b.Click(phoneLocators.NextButton); err != nil {
		return Transient(err)
	}

	if err := s.provider.MarkUsed(ctx, req); err != nil {
		s.logger.Warn("Failed to mark activation complete.", zap.Error(err))
	} else if !fromPool {
		s.pool.Put(req, s.cfg.Service)
	}
	s.logger.Info("Phone verification complete.", zap.String("number", req.Number))
	return Success()
}

// leaseNumber prefers the reuse pool, then buys a fresh number in the
// cheapest configured country. A pooled number needs a new activation before
// it can receive another code; the old activation already delivered its code
// and polling it again would replay a stale one.
func (s *PhoneVerification) leaseNumber(ctx context.Context) (*sms.VerificationRequest, bool, error) {
	if pooled := s.pool.Get(s.cfg.Service); pooled != nil {
		req, err := s.provider.ReuseNumber(ctx, pooled)
		if err == nil {
			return req, true, nil
		}
		s.logger.Warn("Could not reactivate pooled number, buying a fresh lease.",
			zap.String("number", pooled.Number),
			zap.Error(err),
		)
	}
	country := s.provider.CheapestCountry(ctx)
	req, err := s.provider.RequestNumber(ctx, country)
	if err != nil {
		return nil, false, err
	}
	return req, false, nil
}

// abandon cancels the current lease and reports the failure as transient.
// The cancel itself is best effort.
func (s *PhoneVerification) abandon(ctx context.Context, req *sms.VerificationRequest, cause error) Result {
	if err := s.provider.Cancel(ctx, req); err != nil {
		s.logger.Warn("Failed to cancel activation.", zap.String("activation_id", req.ID), zap.Error(err))
	}
	return Transient(cause)
}
