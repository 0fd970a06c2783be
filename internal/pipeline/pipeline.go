// File: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
	"github.com/forgelabs-io/accountforge/internal/profiles"
	"github.com/forgelabs-io/accountforge/internal/signup"
	"github.com/forgelabs-io/accountforge/internal/sms"
)

// ProfileManager supplies exclusive browser profiles. Release must be safe
// to call exactly once per acquired profile regardless of run outcome.
type ProfileManager interface {
	Acquire(ctx context.Context) (*profiles.Profile, error)
	Release(ctx context.Context, p *profiles.Profile)
}

// Session is the browser surface a run drives plus its teardown.
type Session interface {
	signup.Browser
	Close() error
}

// SessionOpener attaches a session to a profile's devtools endpoint.
type SessionOpener func(ctx context.Context, endpoint string) (Session, error)

// PhoneCanceller releases a leased verification number during cleanup.
type PhoneCanceller interface {
	Cancel(ctx context.Context, req *sms.VerificationRequest) error
}

// stageSlot binds a stage to its reached state, failure reason, and
// attempt budget.
type stageSlot struct {
	stage    signup.Stage
	done     State
	reason   string
	attempts int
}

// Pipeline executes account-creation runs. One Pipeline is shared by all
// concurrent runs; per-run state lives entirely in Run's frame.
type Pipeline struct {
	cfg      config.PipelineConfig
	profiles ProfileManager
	open     SessionOpener
	phones   PhoneCanceller
	stages   []stageSlot
	sink     Sink
	logger   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New assembles a pipeline over the given collaborators. The stage order is
// fixed: account setup, terms, phone verification, account verification.
func New(
	cfg config.PipelineConfig,
	pm ProfileManager,
	open SessionOpener,
	phones PhoneCanceller,
	setup, terms, phone, verify signup.Stage,
	sink Sink,
	logger *zap.Logger,
) *Pipeline {
	if sink == nil {
		sink = nopSink{}
	}
	return &Pipeline{
		cfg:      cfg,
		profiles: pm,
		open:     open,
		phones:   phones,
		stages: []stageSlot{
			{stage: setup, done: StateAccountSetup, reason: ReasonAccountSetup, attempts: cfg.StageAttempts},
			{stage: terms, done: StateTermsAccepted, reason: ReasonTermsAcceptance, attempts: cfg.StageAttempts},
			{stage: phone, done: StatePhoneVerified, reason: ReasonPhoneVerification, attempts: cfg.PhoneStageAttempts},
			{stage: verify, done: StateAccountVerified, reason: ReasonVerifyUnconfirmed, attempts: cfg.StageAttempts},
		},
		sink:   sink,
		logger: logger.Named("pipeline"),
		sleep:  sleepCtx,
	}
}

// Run executes one account-creation attempt with the given identity and
// always returns a result carrying exactly one terminal outcome. Cleanup
// runs in fixed order session, then phone lease, then profile; cleanup
// failures are logged and never override the outcome.
func (p *Pipeline) Run(ctx context.Context, identity signup.Identity) *RunResult {
	result := &RunResult{
		RunID:     uuid.New(),
		LastState: StateInit,
		StartedAt: time.Now(),
	}
	logger := p.logger.With(zap.String("run_id", result.RunID.String()))

	runCtx := ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	state := &signup.RunState{Identity: identity}

	profile, err := p.profiles.Acquire(runCtx)
	if err != nil {
		logger.Error("Profile acquisition failed.", zap.Error(err))
		return p.finish(result, state, ctx, ReasonProfileUnavailable)
	}
	result.ProfileID = profile.ID
	p.advance(result, StateProfileAcquired)
	defer p.profiles.Release(context.WithoutCancel(ctx), profile)
	defer p.cleanupPhone(context.WithoutCancel(ctx), state, logger)

	session, err := p.open(runCtx, profile.Endpoint)
	if err != nil {
		logger.Error("Session open failed.", zap.Error(err))
		return p.finish(result, state, ctx, ReasonSessionOpenFailed)
	}
	p.advance(result, StateSessionOpen)
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Session close failed.", zap.Error(err))
		}
	}()

	for _, slot := range p.stages {
		if reason, ok := p.runStage(runCtx, slot, session, state, result, logger); !ok {
			return p.finish(result, state, ctx, reason)
		}
		p.advance(result, slot.done)
	}
	return p.finish(result, state, ctx, "")
}

// runStage drives one stage through its attempt budget. Returns the
// failure reason and false when the stage is exhausted or fails
// permanently.
func (p *Pipeline) runStage(ctx context.Context, slot stageSlot, session Session, state *signup.RunState, result *RunResult, logger *zap.Logger) (string, bool) {
	for attempt := 1; attempt <= slot.attempts; attempt++ {
		if ctx.Err() != nil {
			return slot.reason, false
		}

		res := slot.stage.Execute(ctx, session, state)
		if res.OK() {
			return "", true
		}

		p.sink.Publish(Event{
			RunID:   result.RunID,
			State:   result.LastState,
			Stage:   slot.stage.Name(),
			Attempt: attempt,
			Err:     res.Err,
		})
		if res.Class == signup.ClassPermanent {
			logger.Error("Stage failed permanently.",
				zap.String("stage", slot.stage.Name()),
				zap.Error(res.Err),
			)
			return slot.reason, false
		}
		logger.Warn("Stage attempt failed.",
			zap.String("stage", slot.stage.Name()),
			zap.Int("attempt", attempt),
			zap.Int("budget", slot.attempts),
			zap.Error(res.Err),
		)
		if attempt < slot.attempts {
			if err := p.sleep(ctx, p.cfg.RetryDelay); err != nil {
				return slot.reason, false
			}
		}
	}
	return slot.reason, false
}

// advance moves the run forward and publishes the transition.
func (p *Pipeline) advance(result *RunResult, next State) {
	result.LastState = next
	p.sink.Publish(Event{RunID: result.RunID, State: next})
}

// finish classifies the terminal outcome. Cancellation always yields a
// failed run, whatever progress was made; otherwise a failure at or after
// completed account setup is a partial success since the credentials
// exist. Account data is copied out whenever setup completed.
func (p *Pipeline) finish(result *RunResult, state *signup.RunState, parent context.Context, reason string) *RunResult {
	result.FinishedAt = time.Now()

	if result.LastState.AtLeast(StateAccountSetup) {
		result.Email = state.Email
		result.Password = state.Identity.Password
		result.FirstName = state.Identity.FirstName
		result.LastName = state.Identity.LastName
	}
	if state.Phone != nil {
		result.PhoneNumber = state.Phone.Number
		result.PhoneCountry = state.Phone.Country
		result.ActivationID = state.Phone.ID
	}

	switch {
	case reason == "":
		result.Outcome = OutcomeSuccess
	case parent.Err() != nil:
		result.Outcome = OutcomeFailed
		result.Reason = ReasonCancelled
	case result.LastState.AtLeast(StateAccountSetup):
		result.Outcome = OutcomePartial
		result.Reason = reason
	default:
		result.Outcome = OutcomeFailed
		result.Reason = reason
	}

	p.sink.Publish(Event{RunID: result.RunID, State: result.LastState, Stage: string(result.Outcome)})
	p.logger.Info("Run finished.",
		zap.String("run_id", result.RunID.String()),
		zap.String("outcome", string(result.Outcome)),
		zap.String("reason", result.Reason),
		zap.String("last_state", string(result.LastState)),
		zap.Duration("duration", result.Duration()),
	)
	return result
}

// cleanupPhone cancels a still-pending verification lease. Runs after the
// session teardown and before the profile release.
func (p *Pipeline) cleanupPhone(ctx context.Context, state *signup.RunState, logger *zap.Logger) {
	if state.Phone == nil || state.Phone.Status != sms.StatusPending {
		return
	}
	if err := p.phones.Cancel(ctx, state.Phone); err != nil {
		logger.Warn("Failed to cancel pending activation.",
			zap.String("activation_id", state.Phone.ID),
			zap.Error(err),
		)
	}
}

// sleepCtx blocks for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrNoRuns is returned by the runner when asked for zero accounts.
var ErrNoRuns = errors.New("pipeline: run count must be positive")
