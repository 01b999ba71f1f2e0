package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/code-hustle/apiserver/internal/mq"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/types"
	"github.com/rs/zerolog"
)

// Broker channels carrying judge traffic. The API server publishes judge
// requests and consumes judge results; it never evaluates code itself.
const (
	JudgeRequestChannel = "submissions.judge"
	JudgeResultChannel  = "submissions.results"
)

// SubmissionRepository defines persistence operations for submissions.
type SubmissionRepository interface {
	Get(ctx context.Context, id int64) (types.Submission, error)
	Create(ctx context.Context, submission types.Submission) (types.Submission, error)
	ListByUser(ctx context.Context, userID, problemID, offset, limit int) ([]types.Submission, int, error)
	SetVerdict(ctx context.Context, id int64, verdict types.Verdict, message string) error
}

// SubmissionService accepts submissions, queues them for the external judge,
// and applies the verdicts the judge reports back.
type SubmissionService struct {
	repo     SubmissionRepository
	problems ProblemRepository
	broker   *mq.MQ
	log      zerolog.Logger
}

// NewSubmissionService constructs the service. broker may be nil, in which
// case submissions are stored but no judge request is published.
func NewSubmissionService(repo SubmissionRepository, problems ProblemRepository, broker *mq.MQ, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{repo: repo, problems: problems, broker: broker, log: log}
}

// Create stores a pending submission for the given problem and publishes a
// judge request. The submission is kept even when publishing fails; the
// verdict stays pending until a judge picks it up.
func (s *SubmissionService) Create(ctx context.Context, userID, problemID int, code, language string) (types.Submission, error) {
	if _, err := s.problems.Get(ctx, problemID); err != nil {
		return types.Submission{}, err
	}

	submission, err := s.repo.Create(ctx, types.Submission{
		ProblemID: problemID,
		UserID:    userID,
		Code:      code,
		Language:  language,
		Verdict:   types.VerdictPending,
	})
	if err != nil {
		return types.Submission{}, err
	}

	if err := s.problems.IncrementSubmissionCount(ctx, problemID); err != nil {
		s.log.Warn().Err(err).Int("problem_id", problemID).Msg("failed to bump submission counter")
	}

	if s.broker != nil {
		payload, err := json.Marshal(types.JudgeRequest{
			SubmissionID: submission.ID,
			ProblemID:    submission.ProblemID,
			Language:     submission.Language,
			Code:         submission.Code,
		})
		if err != nil {
			return types.Submission{}, err
		}
		if _, err := s.broker.Publish(ctx, JudgeRequestChannel, payload, nil); err != nil {
			s.log.Error().Err(err).Int64("submission_id", submission.ID).Msg("failed to publish judge request")
		}
	}

	return submission, nil
}

func (s *SubmissionService) Get(ctx context.Context, id int64) (types.Submission, error) {
	return s.repo.Get(ctx, id)
}

func (s *SubmissionService) ListByUser(ctx context.Context, userID, problemID, offset, limit int) ([]types.Submission, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.ListByUser(ctx, userID, problemID, offset, limit)
}

// ApplyResult records a verdict reported by the external judge.
func (s *SubmissionService) ApplyResult(ctx context.Context, result types.JudgeResult) error {
	if result.SubmissionID < 1 || result.Verdict == "" {
		return errors.New("invalid judge result")
	}

	submission, err := s.repo.Get(ctx, result.SubmissionID)
	if err != nil {
		return err
	}

	if err := s.repo.SetVerdict(ctx, result.SubmissionID, result.Verdict, result.Message); err != nil {
		return err
	}

	if result.Verdict == types.VerdictAccepted {
		if err := s.problems.IncrementAcceptedCount(ctx, submission.ProblemID); err != nil {
			s.log.Warn().Err(err).Int("problem_id", submission.ProblemID).Msg("failed to bump accepted counter")
		}
	}
	return nil
}

// ConsumeResults subscribes to the judge result channel and applies each
// verdict as it arrives. Blocks until ctx is cancelled.
func (s *SubmissionService) ConsumeResults(ctx context.Context) error {
	if s.broker == nil {
		return errors.New("no broker configured")
	}
	return s.broker.Subscribe(ctx, JudgeResultChannel, func(ctx context.Context, msg mq.Message) error {
		var result types.JudgeResult
		if err := json.Unmarshal(msg.Data, &result); err != nil {
			s.log.Error().Err(err).Str("message_id", msg.ID).Msg("malformed judge result")
			return nil // drop, do not redeliver
		}
		if err := s.ApplyResult(ctx, result); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.log.Warn().Int64("submission_id", result.SubmissionID).Msg("judge result for unknown submission")
				return nil
			}
			return err
		}
		return nil
	})
}
