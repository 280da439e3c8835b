package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranscriptRepository keeps tutor transcripts in the local database, one row per tutor session id.
type TranscriptRepository interface {
	ReadTranscript(ctx context.Context, sessionID string) (*model.TutorTranscript, error)
	WriteTranscript(ctx context.Context, transcript *model.TutorTranscript) error
}

type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository returns nil when there is no database connection.
func NewTranscriptRepository(db *gorm.DB) TranscriptRepository {
	if db == nil {
		return nil
	}
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) ReadTranscript(ctx context.Context, sessionID string) (*model.TutorTranscript, error) {
	var rec model.TranscriptRecord
	err := r.db.WithContext(ctx).Where("user_session_id = ?", sessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", sessionID, err)
	}

	var messages []model.Turn
	if len(rec.Messages) > 0 {
		if err := json.Unmarshal(rec.Messages, &messages); err != nil {
			return nil, fmt.Errorf("decode transcript %s messages: %w", sessionID, err)
		}
	}
	return &model.TutorTranscript{
		UserSessionID:    rec.UserSessionID,
		UserID:           rec.UserID,
		QuizID:           rec.QuizID,
		SubjectID:        rec.SubjectID,
		TopicID:          rec.TopicID,
		QuestionNumber:   rec.QuestionNumber,
		AttemptNumber:    rec.AttemptNumber,
		OriginalQuestion: rec.OriginalQuestion,
		OptionsText:      rec.OptionsText,
		StudentAnswer:    rec.StudentAnswer,
		CorrectAnswer:    rec.CorrectAnswer,
		ContextualAnswer: rec.ContextualAnswer,
		Messages:         messages,
		RetryCount:       rec.RetryCount,
		Concluded:        rec.Concluded,
		UpdatedAt:        rec.UpdatedAt,
	}, nil
}

// WriteTranscript upserts the whole transcript under its session id.
func (r *transcriptRepository) WriteTranscript(ctx context.Context, t *model.TutorTranscript) error {
	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("encode transcript %s messages: %w", t.UserSessionID, err)
	}
	rec := model.TranscriptRecord{
		UserSessionID:    t.UserSessionID,
		UserID:           t.UserID,
		QuizID:           t.QuizID,
		SubjectID:        t.SubjectID,
		TopicID:          t.TopicID,
		QuestionNumber:   t.QuestionNumber,
		AttemptNumber:    t.AttemptNumber,
		OriginalQuestion: t.OriginalQuestion,
		OptionsText:      t.OptionsText,
		StudentAnswer:    t.StudentAnswer,
		CorrectAnswer:    t.CorrectAnswer,
		ContextualAnswer: t.ContextualAnswer,
		Messages:         messages,
		RetryCount:       t.RetryCount,
		Concluded:        t.Concluded,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"student_answer", "contextual_answer", "messages", "retry_count", "concluded", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("write transcript %s: %w", t.UserSessionID, err)
	}
	return nil
}
