package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnKind labels what a transcript turn is for.
type TurnKind string

const (
	TurnQuestion     TurnKind = "question"
	TurnAnswer       TurnKind = "answer"
	TurnContextual   TurnKind = "contextual"
	TurnFeedback     TurnKind = "feedback"
	TurnActualAnswer TurnKind = "actual-answer"
	TurnSummary      TurnKind = "summary"
	TurnKnowledgeGap TurnKind = "knowledge-gap"
	TurnError        TurnKind = "error"
)

type Turn struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Kind    TurnKind `json:"type,omitempty"`
}

// TutorSessionID is the transcript key. It changes whenever the user, quiz, question or attempt changes.
func TutorSessionID(userID, quizID, questionNumber, attemptNumber int) string {
	return fmt.Sprintf("%d:%d:%d:%d", userID, quizID, questionNumber, attemptNumber)
}

// TutorTranscript is the stored conversation for one tutor session id.
type TutorTranscript struct {
	UserSessionID    string    `json:"user_session_id"`
	UserID           int       `json:"user_id"`
	QuizID           int       `json:"quiz_id"`
	SubjectID        int       `json:"subject_id,omitempty"`
	TopicID          int       `json:"topic_id,omitempty"`
	QuestionNumber   int       `json:"question_number"`
	AttemptNumber    int       `json:"attempt_number"`
	OriginalQuestion string    `json:"original_question"`
	OptionsText      string    `json:"options_text,omitempty"`
	StudentAnswer    string    `json:"student_answer"`
	CorrectAnswer    string    `json:"correct_answer"`
	ContextualAnswer string    `json:"contextual_answer,omitempty"`
	Messages         []Turn    `json:"messages"`
	RetryCount       int       `json:"retry_count"`
	Concluded        bool      `json:"concluded"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// TranscriptRecord is the table row used when transcripts are kept in the local database.
type TranscriptRecord struct {
	UserSessionID    string         `gorm:"primaryKey;size:128" json:"user_session_id"`
	UserID           int            `gorm:"index" json:"user_id"`
	QuizID           int            `gorm:"index" json:"quiz_id"`
	SubjectID        int            `json:"subject_id"`
	TopicID          int            `json:"topic_id"`
	QuestionNumber   int            `json:"question_number"`
	AttemptNumber    int            `json:"attempt_number"`
	OriginalQuestion string         `gorm:"type:text" json:"original_question"`
	OptionsText      string         `gorm:"type:text" json:"options_text"`
	StudentAnswer    string         `gorm:"type:text" json:"student_answer"`
	CorrectAnswer    string         `gorm:"type:text" json:"correct_answer"`
	ContextualAnswer string         `gorm:"type:text" json:"contextual_answer"`
	Messages         datatypes.JSON `json:"messages"`
	RetryCount       int            `json:"retry_count"`
	Concluded        bool           `json:"concluded"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (TranscriptRecord) TableName() string {
	return "tutor_transcripts"
}
