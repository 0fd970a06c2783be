// File: internal/signup/account_setup.go
package signup

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
)

// AccountSetup drives the first screen group: optional account chooser,
// account-type selection, basic info, username, and password.
type AccountSetup struct {
	cfg     config.SignupConfig
	timings config.BrowserConfig
	logger  *zap.Logger
}

// NewAccountSetup builds the account-setup stage.
func NewAccountSetup(cfg config.SignupConfig, timings config.BrowserConfig, logger *zap.Logger) *AccountSetup {
	return &AccountSetup{cfg: cfg, timings: timings, logger: logger.Named("account_setup")}
}

func (s *AccountSetup) Name() string { return "account-setup" }

// Execute runs the full setup screen group. Safe to re-run after a
// transient failure: navigation restarts the flow from the signup URL.
func (s *AccountSetup) Execute(ctx context.Context, b Browser, state *RunState) Result {
	if err := b.Navigate(s.cfg.URL); err != nil {
		return Transient(err)
	}
	if err := ctx.Err(); err != nil {
		return Transient(err)
	}

	if err := s.dismissAccountChooser(b); err != nil {
		return Transient(err)
	}
	s.selectPersonalAccount(b)

	if err := s.fillBasicInfo(b, state.Identity); err != nil {
		return Transient(err)
	}
	if res := s.setUsername(ctx, b, state); !res.OK() {
		return res
	}
	if err := s.setPassword(b, state.Identity); err != nil {
		return Transient(err)
	}

	state.Email = state.Identity.Email(s.cfg.MailDomain)
	s.logger.Info("Account setup complete.", zap.String("email", state.Email))
	return Success()
}

// dismissAccountChooser handles the "Choose an account" screen shown when
// the profile carries leftover session state. Absence is the normal case.
func (s *AccountSetup) dismissAccountChooser(b Browser) error {
	present, err := b.WaitFor(accountLocators.ChooseAccountScreen, s.timings.ShortWait)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	s.logger.Debug("Account chooser screen detected.")
	if err := b.Click(accountLocators.UseAnotherAccount); err != nil {
		// Positional locator missed, try the text-based variant.
		return b.Click(accountLocators.UseAnotherAccountAlt)
	}
	return nil
}

// selectPersonalAccount walks the create-account entry menu when it is
// shown. Some variants land directly on the name form, so misses here are
// not failures.
func (s *AccountSetup) selectPersonalAccount(b Browser) {
	if present, _ := b.WaitFor(accountLocators.CreateAccountButton, s.timings.ShortWait); present {
		if err := b.Click(accountLocators.CreateAccountButton); err != nil {
			s.logger.Debug("Create-account button not clickable.", zap.Error(err))
			return
		}
		if err := b.Click(accountLocators.PersonalUseOption); err != nil {
			s.logger.Debug("Personal-use option not clickable.", zap.Error(err))
		}
	}
}

func (s *AccountSetup) fillBasicInfo(b Browser, id Identity) error {
	if err := b.Fill(accountLocators.FirstName, id.FirstName); err != nil {
		return err
	}
	if err := b.Fill(accountLocators.LastName, id.LastName); err != nil {
		return err
	}
	if err := b.Click(accountLocators.NextButton); err != nil {
		return err
	}

	// Date fields render readonly on some variants.
	_ = b.RemoveAttribute(accountLocators.Month, "readonly")
	_ = b.RemoveAttribute(accountLocators.Day, "readonly")
	_ = b.RemoveAttribute(accountLocators.Year, "readonly")

	if err := b.SetValue(accountLocators.Month, strconv.Itoa(id.BirthMonth)); err != nil {
		return err
	}
	if err := b.Fill(accountLocators.Day, strconv.Itoa(id.BirthDay)); err != nil {
		return err
	}
	if err := b.Fill(accountLocators.Year, strconv.Itoa(id.BirthYear)); err != nil {
		return err
	}
	if err := b.SetValue(accountLocators.Gender, id.Gender); err != nil {
		s.logger.Debug("Gender select rejected value, leaving default.", zap.Error(err))
	}
	return b.Click(accountLocators.NextButton)
}

// setUsername fills the chosen username, retrying with regenerated
// candidates while the form reports the name as taken. Exhausting the
// candidate budget is permanent: more retries of the whole stage would
// walk the same namespace.
func (s *AccountSetup) setUsername(ctx context.Context, b Browser, state *RunState) Result {
	if present, _ := b.WaitFor(usernameLocators.SuggestionOption, s.timings.ShortWait); present {
		// Suggestion screen: pick "create your own address" first.
		if err := b.Click(usernameLocators.SuggestionOption); err != nil {
			return Transient(err)
		}
	}

	for attempt := 1; attempt <= s.cfg.UsernameAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Transient(err)
		}
		if err := b.Fill(usernameLocators.UsernameField, state.Identity.Username); err != nil {
			return Transient(err)
		}
		if err := b.Click(accountLocators.NextButton); err != nil {
			return Transient(err)
		}

		taken, err := b.WaitFor(usernameLocators.TakenError, s.timings.ShortWait)
		if err != nil {
			return Transient(err)
		}
		if !taken {
			return Success()
		}
		s.logger.Info("Username taken, regenerating.",
			zap.String("username", state.Identity.Username),
			zap.Int("attempt", attempt),
		)
		state.Identity.RegenerateUsername()
	}
	return Permanent(fmt.Errorf("no available username after %d candidates", s.cfg.UsernameAttempts))
}

func (s *AccountSetup) setPassword(b Browser, id Identity) error {
	if err := b.Fill(passwordLocators.Password, id.Password); err != nil {
		return err
	}
	if err := b.Fill(passwordLocators.Confirm, id.Password); err != nil {
		return err
	}
	return b.Click(accountLocators.NextButton)
}
