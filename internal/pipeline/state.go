// File: internal/pipeline/state.go

// Package pipeline orchestrates one account-creation run end to end:
// acquire a browser profile, open a session, drive the signup stages in
// order, and clean up. Runs move forward only; a failed stage is retried
// in place within its budget, never by re-entering an earlier stage.
package pipeline

// State is the pipeline's progress marker. States are strictly ordered;
// rank encodes that order for outcome classification.
type State string

const (
	StateInit            State = "init"
	StateProfileAcquired State = "profile-acquired"
	StateSessionOpen     State = "session-open"
	StateAccountSetup    State = "account-setup-done"
	StateTermsAccepted   State = "terms-accepted"
	StatePhoneVerified   State = "phone-verified"
	StateAccountVerified State = "account-verified"
)

var stateRank = map[State]int{
	StateInit:            0,
	StateProfileAcquired: 1,
	StateSessionOpen:     2,
	StateAccountSetup:    3,
	StateTermsAccepted:   4,
	StatePhoneVerified:   5,
	StateAccountVerified: 6,
}

// AtLeast reports whether s has progressed to or past other.
func (s State) AtLeast(other State) bool {
	return stateRank[s] >= stateRank[other]
}

// Outcome is the terminal classification of a run.
type Outcome string

const (
	// OutcomeSuccess means every stage completed.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means the run produced no usable account.
	OutcomeFailed Outcome = "failed"
	// OutcomePartial means the account was created but a later stage
	// failed, so the credentials exist in an unconfirmed account.
	OutcomePartial Outcome = "partial-success"
)

// Failure reasons recorded on terminal results.
const (
	ReasonProfileUnavailable = "profile_unavailable"
	ReasonSessionOpenFailed  = "session_open_failed"
	ReasonAccountSetup       = "account_setup_failed"
	ReasonTermsAcceptance    = "terms_acceptance_failed"
	ReasonPhoneVerification  = "phone_verification_failed"
	ReasonVerifyUnconfirmed  = "account_verification_unconfirmed"
	ReasonCancelled          = "cancelled"
)
