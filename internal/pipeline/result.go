// File: internal/pipeline/result.go
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// RunResult is the full record of one account-creation run. Credentials are
// present whenever account setup completed, including partial successes.
type RunResult struct {
	RunID     uuid.UUID `json:"run_id"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	LastState State     `json:"last_state"`

	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	PhoneNumber  string `json:"phone_number,omitempty"`
	PhoneCountry string `json:"phone_country,omitempty"`
	ActivationID string `json:"activation_id,omitempty"`
	ProfileID    string `json:"profile_id,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded reports whether the run produced a fully verified account.
func (r *RunResult) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// Duration is the wall-clock time the run took.
func (r *RunResult) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
