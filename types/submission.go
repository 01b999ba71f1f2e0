package types

import "time"

// Verdict is the outcome of judging a submission. The API server never
// computes verdicts itself; they are produced by the external judge and
// applied via the result feed.
type Verdict string

const (
	VerdictPending           Verdict = "pending"
	VerdictAccepted          Verdict = "accepted"
	VerdictWrongAnswer       Verdict = "wrong_answer"
	VerdictTimeLimitExceeded Verdict = "time_limit_exceeded"
	VerdictRuntimeError      Verdict = "runtime_error"
	VerdictCompileError      Verdict = "compile_error"
)

// Submission represents a user's submission to a problem.
// It contains the source code, language, and the judging outcome once the
// external judge has reported back.
type Submission struct {
	// ID is the unique identifier of the submission.
	ID int64 `json:"id" db:"id"`

	// ProblemID identifies the problem this submission is for.
	ProblemID int `json:"problem_id" db:"problem_id"`

	// UserID identifies the user who made the submission.
	UserID int `json:"user_id" db:"user_id"`

	// Code is the source code submitted by the user.
	Code string `json:"code" db:"code"`

	// Language is the identifier of the programming language used.
	Language string `json:"language" db:"language"`

	// Verdict is the judging outcome. New submissions start as
	// VerdictPending until a result arrives from the judge.
	Verdict Verdict `json:"verdict" db:"verdict"`

	// Message contains additional information reported by the judge,
	// such as a compile error log. Empty while pending.
	Message string `json:"message,omitempty" db:"message"`

	// CreatedAt is the timestamp when the submission was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp when the submission was last updated.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// JudgeRequest is the payload published to the judge queue when a
// submission is created.
type JudgeRequest struct {
	SubmissionID int64  `json:"submission_id"`
	ProblemID    int    `json:"problem_id"`
	Language     string `json:"language"`
	Code         string `json:"code"`
}

// JudgeResult is the payload consumed from the result feed once the
// external judge has evaluated a submission.
type JudgeResult struct {
	SubmissionID int64   `json:"submission_id"`
	Verdict      Verdict `json:"verdict"`
	Message      string  `json:"message,omitempty"`
}
