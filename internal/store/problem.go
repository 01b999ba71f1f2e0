package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/code-hustle/apiserver/types"
)

// ProblemRepository handles persistence for problems.
type ProblemRepository struct {
	db *sql.DB
}

func NewProblemRepository(db *sql.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// ProblemFilter narrows List results. Zero values mean "no filter".
type ProblemFilter struct {
	Difficulty string
	Tag        string
	Search     string
}

func (r *ProblemRepository) List(ctx context.Context, filter ProblemFilter, offset, limit int) ([]types.Problem, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where := " WHERE 1=1"
	args := []any{}
	if filter.Difficulty != "" {
		args = append(args, filter.Difficulty)
		where += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where += fmt.Sprintf(" AND tags ? $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}

	countQuery := `SELECT COUNT(1) FROM problems` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT id, title, difficulty, tags, description, examples, constraints,
		       solution_templates, accepted_count, submission_count, created_at, updated_at
		FROM problems` + where
	args = append(args, offset)
	listQuery += fmt.Sprintf(" ORDER BY id OFFSET $%d", len(args))
	args = append(args, limit)
	listQuery += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	problems := make([]types.Problem, 0, limit)
	for rows.Next() {
		problem, err := scanProblem(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *ProblemRepository) Get(ctx context.Context, id int) (types.Problem, error) {
	const query = `
		SELECT id, title, difficulty, tags, description, examples, constraints,
		       solution_templates, accepted_count, submission_count, created_at, updated_at
		FROM problems
		WHERE id = $1`
	problem, err := scanProblem(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Problem{}, ErrNotFound
		}
		return types.Problem{}, err
	}
	return problem, nil
}

func (r *ProblemRepository) Create(ctx context.Context, problem types.Problem) (types.Problem, error) {
	now := time.Now()
	problem.CreatedAt = now
	problem.UpdatedAt = now

	tagsJSON, examplesJSON, constraintsJSON, templatesJSON, err := marshalProblemJSON(problem)
	if err != nil {
		return types.Problem{}, err
	}

	const query = `
		INSERT INTO problems (title, difficulty, tags, description, examples, constraints,
		                      solution_templates, accepted_count, submission_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		problem.Title,
		problem.Difficulty,
		tagsJSON,
		problem.Description,
		examplesJSON,
		constraintsJSON,
		templatesJSON,
		problem.AcceptedCount,
		problem.SubmissionCount,
		problem.CreatedAt,
		problem.UpdatedAt,
	).Scan(&problem.ID); err != nil {
		return types.Problem{}, err
	}
	return problem, nil
}

func (r *ProblemRepository) Update(ctx context.Context, problem types.Problem) (types.Problem, error) {
	problem.UpdatedAt = time.Now()

	tagsJSON, examplesJSON, constraintsJSON, templatesJSON, err := marshalProblemJSON(problem)
	if err != nil {
		return types.Problem{}, err
	}

	const query = `
		UPDATE problems
		SET title = $1,
			difficulty = $2,
			tags = $3,
			description = $4,
			examples = $5,
			constraints = $6,
			solution_templates = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		problem.Title,
		problem.Difficulty,
		tagsJSON,
		problem.Description,
		examplesJSON,
		constraintsJSON,
		templatesJSON,
		problem.UpdatedAt,
		problem.ID,
	)
	if err != nil {
		return types.Problem{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Problem{}, err
	}
	if affected == 0 {
		return types.Problem{}, ErrNotFound
	}
	return problem, nil
}

func (r *ProblemRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM problems WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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

// IncrementSubmissionCount bumps the submission counter for a problem.
func (r *ProblemRepository) IncrementSubmissionCount(ctx context.Context, id int) error {
	const query = `
		UPDATE problems
		SET submission_count = submission_count + 1
		WHERE id = $1`
	return r.execCounter(ctx, query, id)
}

// IncrementAcceptedCount bumps the accepted counter for a problem.
func (r *ProblemRepository) IncrementAcceptedCount(ctx context.Context, id int) error {
	const query = `
		UPDATE problems
		SET accepted_count = accepted_count + 1
		WHERE id = $1`
	return r.execCounter(ctx, query, id)
}

func (r *ProblemRepository) execCounter(ctx context.Context, query string, id int) error {
	result, err := r.db.ExecContext(ctx, query, id)
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

func (r *ProblemRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM problems`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func marshalProblemJSON(problem types.Problem) (tags, examples, constraints, templates []byte, err error) {
	if tags, err = json.Marshal(problem.Tags); err != nil {
		return nil, nil, nil, nil, err
	}
	if examples, err = json.Marshal(problem.Examples); err != nil {
		return nil, nil, nil, nil, err
	}
	if constraints, err = json.Marshal(problem.Constraints); err != nil {
		return nil, nil, nil, nil, err
	}
	if templates, err = json.Marshal(problem.SolutionTemplates); err != nil {
		return nil, nil, nil, nil, err
	}
	return tags, examples, constraints, templates, nil
}

func scanProblem(scan func(dest ...any) error) (types.Problem, error) {
	var problem types.Problem
	var tagsJSON, examplesJSON, constraintsJSON, templatesJSON []byte
	if err := scan(
		&problem.ID,
		&problem.Title,
		&problem.Difficulty,
		&tagsJSON,
		&problem.Description,
		&examplesJSON,
		&constraintsJSON,
		&templatesJSON,
		&problem.AcceptedCount,
		&problem.SubmissionCount,
		&problem.CreatedAt,
		&problem.UpdatedAt,
	); err != nil {
		return types.Problem{}, err
	}

	if err := json.Unmarshal(tagsJSON, &problem.Tags); err != nil {
		return types.Problem{}, fmt.Errorf("decode problem tags: %w", err)
	}
	if err := json.Unmarshal(examplesJSON, &problem.Examples); err != nil {
		return types.Problem{}, fmt.Errorf("decode problem examples: %w", err)
	}
	if err := json.Unmarshal(constraintsJSON, &problem.Constraints); err != nil {
		return types.Problem{}, fmt.Errorf("decode problem constraints: %w", err)
	}
	if err := json.Unmarshal(templatesJSON, &problem.SolutionTemplates); err != nil {
		return types.Problem{}, fmt.Errorf("decode problem solution templates: %w", err)
	}
	return problem, nil
}
