package types

import "time"

// Difficulty levels a problem can be tagged with.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Problem represents a coding problem in the Code Hustle catalog.
// It contains the statement, metadata shown on the problems page, and the
// editor scaffolding for each supported language.
type Problem struct {
	// ID is the unique identifier of the problem.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the problem.
	Title string `json:"title" db:"title"`

	// Difficulty is one of DifficultyEasy, DifficultyMedium, DifficultyHard.
	Difficulty string `json:"difficulty" db:"difficulty"`

	// Tags are free-form labels associated with the problem, used for
	// categorization, filtering, and search.
	Tags []string `json:"tags" db:"tags"`

	// Description contains the full problem statement in Markdown.
	Description string `json:"description" db:"description"`

	// Examples are the worked input/output samples shown beneath the
	// statement.
	Examples []Example `json:"examples" db:"examples"`

	// Constraints are the stated bounds on the input, one entry per line.
	Constraints []string `json:"constraints" db:"constraints"`

	// SolutionTemplates maps a language identifier (e.g. "python",
	// "javascript", "cpp") to the starter code preloaded in the editor.
	SolutionTemplates map[string]string `json:"solution_templates" db:"solution_templates"`

	// AcceptedCount is the number of accepted submissions for this problem.
	AcceptedCount int `json:"accepted_count" db:"accepted_count"`

	// SubmissionCount is the total number of submissions for this problem.
	SubmissionCount int `json:"submission_count" db:"submission_count"`

	// CreatedAt is the timestamp at which the problem was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the problem.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Example represents a single worked sample in a problem statement.
type Example struct {
	// Input is the sample input, rendered verbatim.
	Input string `json:"input"`

	// Output is the expected output for the sample input.
	Output string `json:"output"`

	// Explanation optionally walks through why the output follows from
	// the input.
	Explanation string `json:"explanation,omitempty"`
}
