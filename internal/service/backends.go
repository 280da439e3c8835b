package service

import (
	"context"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

// QuizBackend is the quiz, progress, attempt and submission surface of the REST backend.
type QuizBackend interface {
	FetchQuestions(ctx context.Context, quizID, organizationID int) ([]model.Question, error)
	// FetchProgress returns nil, nil when no progress row exists.
	FetchProgress(ctx context.Context, key model.ProgressKey) (*model.QuizProgress, error)
	UpsertProgress(ctx context.Context, key model.ProgressKey, progress *model.QuizProgress) error
	StartAttempt(ctx context.Context, key model.ProgressKey) (int, error)
	CreateSubmission(ctx context.Context, key model.ProgressKey, submission *model.SubmissionRecord) (*model.SubmissionRecord, error)
}

// TutorBackend is the AI surface used for grading short answers and for tutoring.
type TutorBackend interface {
	EvaluateAnswer(ctx context.Context, req model.EvaluationRequest) (bool, error)
	ContextualAnswer(ctx context.Context, p model.TutorPrompt) (string, error)
	InitialQuestion(ctx context.Context, p model.TutorPrompt) (string, error)
	Feedback(ctx context.Context, p model.TutorPrompt) (string, error)
	FollowUpQuestion(ctx context.Context, p model.TutorPrompt) (string, error)
	Summary(ctx context.Context, p model.TutorPrompt) (string, error)
	KnowledgeGap(ctx context.Context, p model.TutorPrompt) (string, error)
}

// TranscriptStore keeps tutor conversations by session id.
type TranscriptStore interface {
	// ReadTranscript returns nil, nil when nothing is stored.
	ReadTranscript(ctx context.Context, sessionID string) (*model.TutorTranscript, error)
	WriteTranscript(ctx context.Context, transcript *model.TutorTranscript) error
}

// Backends is the set of collaborators bound to one session's credentials.
type Backends struct {
	Quiz        QuizBackend
	Tutor       TutorBackend
	Transcripts TranscriptStore
}

// BackendProvider hands out collaborators for a session context.
type BackendProvider interface {
	ForSession(sc model.SessionContext) Backends
}
