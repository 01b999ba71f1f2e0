package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/code-hustle/apiserver/types"
)

// SubmissionRepository handles persistence for submissions.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Get(ctx context.Context, id int64) (types.Submission, error) {
	const query = `
		SELECT id, problem_id, user_id, code, language, verdict, message, created_at, updated_at
		FROM submissions
		WHERE id = $1`
	var submission types.Submission
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&submission.ID,
		&submission.ProblemID,
		&submission.UserID,
		&submission.Code,
		&submission.Language,
		&submission.Verdict,
		&submission.Message,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Submission{}, ErrNotFound
		}
		return types.Submission{}, err
	}
	return submission, nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	now := time.Now()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	const query = `
		INSERT INTO submissions (problem_id, user_id, code, language, verdict, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		submission.ProblemID,
		submission.UserID,
		submission.Code,
		submission.Language,
		submission.Verdict,
		submission.Message,
		submission.CreatedAt,
		submission.UpdatedAt,
	).Scan(&submission.ID); err != nil {
		return types.Submission{}, err
	}
	return submission, nil
}

// ListByUser returns a user's submissions, newest first. problemID narrows
// the listing to one problem when non-zero.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID, problemID, offset, limit int) ([]types.Submission, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `
		SELECT COUNT(1) FROM submissions
		WHERE user_id = $1 AND ($2 = 0 OR problem_id = $2)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID, problemID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, problem_id, user_id, code, language, verdict, message, created_at, updated_at
		FROM submissions
		WHERE user_id = $1 AND ($2 = 0 OR problem_id = $2)
		ORDER BY id DESC
		OFFSET $3 LIMIT $4`
	rows, err := r.db.QueryContext(ctx, listQuery, userID, problemID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	submissions := make([]types.Submission, 0, limit)
	for rows.Next() {
		var submission types.Submission
		if err := rows.Scan(
			&submission.ID,
			&submission.ProblemID,
			&submission.UserID,
			&submission.Code,
			&submission.Language,
			&submission.Verdict,
			&submission.Message,
			&submission.CreatedAt,
			&submission.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// SetVerdict applies a judge result to a submission.
func (r *SubmissionRepository) SetVerdict(ctx context.Context, id int64, verdict types.Verdict, message string) error {
	const query = `
		UPDATE submissions
		SET verdict = $1,
			message = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, verdict, message, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM submissions`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CountByVerdict returns submission totals grouped by verdict.
func (r *SubmissionRepository) CountByVerdict(ctx context.Context) (map[types.Verdict]int, error) {
	const query = `SELECT verdict, COUNT(1) FROM submissions GROUP BY verdict`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.Verdict]int)
	for rows.Next() {
		var verdict types.Verdict
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, err
		}
		counts[verdict] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
