// File: internal/signup/account_verify.go
package signup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
)

// AccountVerification confirms the created account is actually usable by
// loading the account home page and checking the session landed there
// instead of being bounced back to a challenge.
type AccountVerification struct {
	timings config.BrowserConfig
	logger  *zap.Logger
}

// NewAccountVerification builds the verification stage.
func NewAccountVerification(timings config.BrowserConfig, logger *zap.Logger) *AccountVerification {
	return &AccountVerification{timings: timings, logger: logger.Named("account_verify")}
}

func (s *AccountVerification) Name() string { return "account-verification" }

// Execute checks the account landed on its home page. An unconfirmed
// account is permanent at this point: the credentials exist but the
// session cannot prove the account works.
func (s *AccountVerification) Execute(ctx context.Context, b Browser, state *RunState) Result {
	if err := ctx.Err(); err != nil {
		return Transient(err)
	}

	if err := b.Navigate(verifyLocators.AccountHomeURL); err != nil {
		return Transient(err)
	}
	url, err := b.CurrentURL()
	if err != nil {
		return Transient(err)
	}
	if strings.HasPrefix(url, verifyLocators.AccountHomeURL) || strings.HasPrefix(url, verifyLocators.MailURL) {
		s.logger.Info("Account verified.", zap.String("email", state.Email))
		return Success()
	}
	return Permanent(fmt.Errorf("account not confirmed, landed on %s", url))
}
