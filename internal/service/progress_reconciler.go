package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

// ProgressReconciler reads the question set and progress row and writes merged answer state back.
// It never holds session state of its own.
type ProgressReconciler interface {
	FetchQuestions(ctx context.Context, quizID, organizationID int) ([]model.Question, error)
	FetchProgress(ctx context.Context, key model.ProgressKey) (*model.QuizProgress, error)
	// FetchAll runs both reads concurrently. Each result has its own error.
	FetchAll(ctx context.Context, key model.ProgressKey, organizationID int) BootstrapResult
	ResumeTarget(total int, progress *model.QuizProgress) int
	PersistAnswer(ctx context.Context, key model.ProgressKey, state model.MergedState) (*model.QuizProgress, error)
	PersistFinal(ctx context.Context, key model.ProgressKey, state model.MergedState) (*model.SubmissionRecord, error)
}

type BootstrapResult struct {
	Questions   []model.Question
	QuestionErr error
	Progress    *model.QuizProgress
	ProgressErr error
}

type progressReconciler struct {
	backend QuizBackend
	now     func() time.Time
}

func NewProgressReconciler(backend QuizBackend, now func() time.Time) ProgressReconciler {
	if now == nil {
		now = time.Now
	}
	return &progressReconciler{backend: backend, now: now}
}

func (r *progressReconciler) FetchQuestions(ctx context.Context, quizID, organizationID int) ([]model.Question, error) {
	questions, err := r.backend.FetchQuestions(ctx, quizID, organizationID)
	if err != nil {
		log.Error().Err(err).Int("quizID", quizID).Msg("FetchQuestions: backend read failed")
		return nil, &FetchError{Op: "questions", Err: err}
	}
	model.SortQuestions(questions)
	// Sessions address questions by position, so numbers must run 1..N.
	for i, q := range questions {
		if q.QuestionNumber != i+1 {
			err := fmt.Errorf("question numbers must run 1..%d, found %d at position %d", len(questions), q.QuestionNumber, i+1)
			log.Error().Err(err).Int("quizID", quizID).Msg("FetchQuestions: malformed question set")
			return nil, &FetchError{Op: "questions", Err: err}
		}
	}
	return questions, nil
}

func (r *progressReconciler) FetchProgress(ctx context.Context, key model.ProgressKey) (*model.QuizProgress, error) {
	progress, err := r.backend.FetchProgress(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("progressKey", key.String()).Msg("FetchProgress: backend read failed")
		return nil, &FetchError{Op: "progress", Err: err}
	}
	if progress != nil && progress.Answers == nil {
		progress.Answers = model.AnswerMap{}
	}
	return progress, nil
}

func (r *progressReconciler) FetchAll(ctx context.Context, key model.ProgressKey, organizationID int) BootstrapResult {
	var (
		res BootstrapResult
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Questions, res.QuestionErr = r.FetchQuestions(ctx, key.QuizID, organizationID)
	}()
	go func() {
		defer wg.Done()
		res.Progress, res.ProgressErr = r.FetchProgress(ctx, key)
	}()
	wg.Wait()
	return res
}

func (r *progressReconciler) ResumeTarget(total int, progress *model.QuizProgress) int {
	return model.ResumeTarget(total, progress)
}

func (r *progressReconciler) progressRow(key model.ProgressKey, state model.MergedState) *model.QuizProgress {
	counters := model.CountersFor(state.Answers, state.TotalQuestions)
	return &model.QuizProgress{
		UserID:            key.UserID,
		QuizID:            key.QuizID,
		SubjectID:         key.SubjectID,
		TopicID:           key.TopicID,
		CurrentQuestion:   state.CurrentQuestion,
		TotalQuestions:    state.TotalQuestions,
		AnsweredQuestions: counters.AnsweredQuestions,
		Score:             counters.Score,
		TimeSpent:         state.TimeSpent,
		Completed:         counters.Completed,
		Answers:           state.Answers.Clone(),
		AttemptNumber:     state.AttemptNumber,
	}
}

// PersistAnswer upserts the progress row for a merged state. Repeating it with the same state is harmless.
func (r *progressReconciler) PersistAnswer(ctx context.Context, key model.ProgressKey, state model.MergedState) (*model.QuizProgress, error) {
	row := r.progressRow(key, state)
	if err := r.backend.UpsertProgress(ctx, key, row); err != nil {
		log.Error().Err(err).Str("progressKey", key.String()).Int("answered", row.AnsweredQuestions).Msg("PersistAnswer: upsert failed")
		return nil, &PersistError{Op: "progress", Err: err}
	}
	log.Debug().Str("progressKey", key.String()).Int("answered", row.AnsweredQuestions).Int("score", row.Score).Msg("PersistAnswer: progress saved")
	return row, nil
}

// PersistFinal marks the progress row completed and records the submission snapshot.
func (r *progressReconciler) PersistFinal(ctx context.Context, key model.ProgressKey, state model.MergedState) (*model.SubmissionRecord, error) {
	row := r.progressRow(key, state)
	row.Completed = true
	if err := r.backend.UpsertProgress(ctx, key, row); err != nil {
		log.Error().Err(err).Str("progressKey", key.String()).Msg("PersistFinal: upsert failed")
		return nil, &PersistError{Op: "final progress", Err: err}
	}

	snapshot := &model.SubmissionRecord{
		UserID:         key.UserID,
		QuizID:         key.QuizID,
		SubjectID:      key.SubjectID,
		TopicID:        key.TopicID,
		Score:          row.Score,
		TotalQuestions: row.TotalQuestions,
		TimeSpent:      row.TimeSpent,
		Answers:        row.Answers,
		AttemptNumber:  row.AttemptNumber,
		SubmittedAt:    r.now().UTC(),
	}
	saved, err := r.backend.CreateSubmission(ctx, key, snapshot)
	if err != nil {
		log.Error().Err(err).Str("progressKey", key.String()).Msg("PersistFinal: submission failed")
		return nil, &PersistError{Op: "submission", Err: fmt.Errorf("create submission: %w", err)}
	}
	log.Info().Str("progressKey", key.String()).Int("score", saved.Score).Int("attempt", saved.AttemptNumber).Msg("PersistFinal: quiz submitted")
	return saved, nil
}
