// File: internal/signup/result.go

// Package signup implements the staged account-creation flow. Each stage
// drives one screen group of the signup form through a browser session and
// reports whether its failure, if any, is worth retrying.
package signup

// FailureClass tells the caller how to react to a stage failure.
type FailureClass int

const (
	// ClassNone means the stage completed.
	ClassNone FailureClass = iota
	// ClassTransient failures may succeed on a retry of the same stage.
	ClassTransient
	// ClassPermanent failures will not be fixed by retrying.
	ClassPermanent
)

func (c FailureClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Result is the outcome of one stage execution attempt.
type Result struct {
	Err   error
	Class FailureClass
}

// OK reports whether the stage completed.
func (r Result) OK() bool { return r.Err == nil }

// Success builds a completed result.
func Success() Result { return Result{} }

// Transient wraps err as a retryable stage failure.
func Transient(err error) Result { return Result{Err: err, Class: ClassTransient} }

// Permanent wraps err as a non-retryable stage failure.
func Permanent(err error) Result { return Result{Err: err, Class: ClassPermanent} }
