// File: internal/signup/stage.go
package signup

import (
	"context"
	"time"

	"github.com/forgelabs-io/accountforge/internal/browser"
	"github.com/forgelabs-io/accountforge/internal/sms"
)

// Browser is the slice of the session surface the stages drive. Satisfied
// by *browser.Session; stage tests script it with a fake.
type Browser interface {
	Navigate(url string) error
	Fill(loc browser.Locator, value string) error
	SetValue(loc browser.Locator, value string) error
	Click(loc browser.Locator) error
	RemoveAttribute(loc browser.Locator, attr string) error
	WaitFor(loc browser.Locator, timeout time.Duration) (bool, error)
	CurrentURL() (string, error)
}

// RunState carries what the stages have produced so far. Stages write into
// it as they complete; the pipeline reads it to build the final record.
type RunState struct {
	Identity Identity
	Email    string
	Phone    *sms.VerificationRequest
}

// Stage is one step of the signup flow. Execute must be safe to call again
// after a transient failure.
type Stage interface {
	Name() string
	Execute(ctx context.Context, b Browser, state *RunState) Result
}
