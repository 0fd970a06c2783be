// File: internal/signup/terms.go
package signup

import (
	"context"

	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
)

// TermsAcceptance drives the recovery-email prompt and the terms screen.
// The terms screen ships in two variants: a single agree button, or a set
// of consent checkboxes with their own confirm button.
type TermsAcceptance struct {
	timings config.BrowserConfig
	logger  *zap.Logger
}

// NewTermsAcceptance builds the terms stage.
func NewTermsAcceptance(timings config.BrowserConfig, logger *zap.Logger) *TermsAcceptance {
	return &TermsAcceptance{timings: timings, logger: logger.Named("terms")}
}

func (s *TermsAcceptance) Name() string { return "terms-acceptance" }

// Execute accepts the service terms. A flow variant that never shows a
// terms control completes the stage trivially.
func (s *TermsAcceptance) Execute(ctx context.Context, b Browser, _ *RunState) Result {
	if err := ctx.Err(); err != nil {
		return Transient(err)
	}

	s.skipRecoveryEmail(b)

	if present, err := b.WaitFor(termsLocators.Checkbox1, s.timings.ShortWait); err != nil {
		return Transient(err)
	} else if present {
		return s.acceptCheckboxVariant(b)
	}

	present, err := b.WaitFor(termsLocators.AgreeButton, s.timings.ElementTimeout)
	if err != nil {
		return Transient(err)
	}
	if !present {
		// No terms control on this variant, nothing to accept.
		s.logger.Info("No terms screen shown, continuing.")
		return Success()
	}
	if err := b.Click(termsLocators.AgreeButton); err != nil {
		return Transient(err)
	}
	s.confirmIfPrompted(b)
	s.logger.Info("Terms accepted.")
	return Success()
}

// skipRecoveryEmail dismisses the optional recovery-email prompt. Best
// effort: the prompt only appears on some variants.
func (s *TermsAcceptance) skipRecoveryEmail(b Browser) {
	present, _ := b.WaitFor(termsLocators.RecoveryEmailSkip, s.timings.ShortWait)
	if !present {
		return
	}
	if err := b.Click(termsLocators.RecoveryEmailSkip); err != nil {
		s.logger.Debug("Recovery email skip not clickable.", zap.Error(err))
		return
	}
	s.logger.Debug("Recovery email prompt skipped.")
}

// acceptCheckboxVariant ticks every consent checkbox and confirms.
func (s *TermsAcceptance) acceptCheckboxVariant(b Browser) Result {
	s.logger.Debug("Terms checkbox variant detected.")
	if err := b.Click(termsLocators.Checkbox1); err != nil {
		return Transient(err)
	}
	// Second and third boxes are absent on some layouts.
	if present, _ := b.WaitFor(termsLocators.Checkbox2, s.timings.ShortWait); present {
		if err := b.Click(termsLocators.Checkbox2); err != nil {
			return Transient(err)
		}
	}
	if present, _ := b.WaitFor(termsLocators.Checkbox3, s.timings.ShortWait); present {
		if err := b.Click(termsLocators.Checkbox3); err != nil {
			return Transient(err)
		}
	}
	if err := b.Click(termsLocators.CheckboxConfirm); err != nil {
		return Transient(err)
	}
	s.confirmIfPrompted(b)
	s.logger.Info("Terms accepted.")
	return Success()
}

// confirmIfPrompted clicks through the confirmation modal when it appears.
func (s *TermsAcceptance) confirmIfPrompted(b Browser) {
	if present, _ := b.WaitFor(termsLocators.ConfirmButton, s.timings.ShortWait); present {
		if err := b.Click(termsLocators.ConfirmButton); err != nil {
			s.logger.Debug("Confirm modal button not clickable.", zap.Error(err))
		}
	}
}
