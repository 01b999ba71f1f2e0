package store

import (
	"context"
	"database/sql"

	"github.com/code-hustle/apiserver/types"
)

// StatsRepository aggregates the dashboard counts from the other tables.
type StatsRepository struct {
	users       *UserRepository
	problems    *ProblemRepository
	submissions *SubmissionRepository
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{
		users:       NewUserRepository(db),
		problems:    NewProblemRepository(db),
		submissions: NewSubmissionRepository(db),
	}
}

func (r *StatsRepository) CountUsers(ctx context.Context) (int, error) {
	return r.users.Count(ctx)
}

func (r *StatsRepository) CountProblems(ctx context.Context) (int, error) {
	return r.problems.Count(ctx)
}

func (r *StatsRepository) CountSubmissions(ctx context.Context) (int, error) {
	return r.submissions.Count(ctx)
}

func (r *StatsRepository) CountSubmissionsByVerdict(ctx context.Context) (map[types.Verdict]int, error) {
	return r.submissions.CountByVerdict(ctx)
}
