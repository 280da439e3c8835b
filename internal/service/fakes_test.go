package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

var errBoom = errors.New("boom")

type fakeQuizBackend struct {
	mu sync.Mutex

	questions   []model.Question
	progress    *model.QuizProgress
	questionErr error
	progressErr error
	upsertErr   error
	attemptErr  error

	nextAttempt int
	upserts     []model.QuizProgress
	submissions []model.SubmissionRecord
	fetches     int
}

func (f *fakeQuizBackend) FetchQuestions(ctx context.Context, quizID, organizationID int) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.questionErr != nil {
		return nil, f.questionErr
	}
	return append([]model.Question(nil), f.questions...), nil
}

func (f *fakeQuizBackend) FetchProgress(ctx context.Context, key model.ProgressKey) (*model.QuizProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	if f.progress == nil {
		return nil, nil
	}
	cp := *f.progress
	cp.Answers = f.progress.Answers.Clone()
	return &cp, nil
}

func (f *fakeQuizBackend) UpsertProgress(ctx context.Context, key model.ProgressKey, progress *model.QuizProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *progress
	cp.Answers = progress.Answers.Clone()
	f.upserts = append(f.upserts, cp)
	f.progress = &cp
	return nil
}

func (f *fakeQuizBackend) StartAttempt(ctx context.Context, key model.ProgressKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attemptErr != nil {
		return 0, f.attemptErr
	}
	f.nextAttempt++
	f.progress = &model.QuizProgress{
		UserID: key.UserID, QuizID: key.QuizID, SubjectID: key.SubjectID, TopicID: key.TopicID,
		CurrentQuestion: 1, Answers: model.AnswerMap{}, AttemptNumber: f.nextAttempt,
	}
	return f.nextAttempt, nil
}

func (f *fakeQuizBackend) CreateSubmission(ctx context.Context, key model.ProgressKey, submission *model.SubmissionRecord) (*model.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *submission
	cp.ID = len(f.submissions) + 1
	f.submissions = append(f.submissions, cp)
	return &cp, nil
}

func (f *fakeQuizBackend) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

// fakeTutorBackend answers every call with a canned string. verdicts are consumed in order by
// EvaluateAnswer; when they run out the answer is judged wrong.
type fakeTutorBackend struct {
	mu sync.Mutex

	verdicts []bool
	errs     map[string]error
	calls    map[string]int
	prompts  []model.TutorPrompt
	evals    []model.EvaluationRequest

	// block, when set, is waited on at the start of the named call.
	block   map[string]chan struct{}
	entered chan string
}

func newFakeTutor() *fakeTutorBackend {
	return &fakeTutorBackend{errs: map[string]error{}, calls: map[string]int{}, block: map[string]chan struct{}{}}
}

func (f *fakeTutorBackend) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.errs[op]
	ch := f.block[op]
	entered := f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- op
	}
	if ch != nil {
		<-ch
	}
	return err
}

func (f *fakeTutorBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeTutorBackend) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeTutorBackend) EvaluateAnswer(ctx context.Context, req model.EvaluationRequest) (bool, error) {
	if err := f.enter(ctx, "evaluate"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, req)
	if len(f.verdicts) == 0 {
		return false, nil
	}
	v := f.verdicts[0]
	f.verdicts = f.verdicts[1:]
	return v, nil
}

func (f *fakeTutorBackend) text(ctx context.Context, op string, p model.TutorPrompt) (string, error) {
	if err := f.enter(ctx, op); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return fmt.Sprintf("%s #%d", op, f.calls[op]), nil
}

func (f *fakeTutorBackend) ContextualAnswer(ctx context.Context, p model.TutorPrompt) (string, error) {
	return f.text(ctx, "contextual", p)
}

func (f *fakeTutorBackend) InitialQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	return f.text(ctx, "initial", p)
}

func (f *fakeTutorBackend) Feedback(ctx context.Context, p model.TutorPrompt) (string, error) {
	return f.text(ctx, "feedback", p)
}

func (f *fakeTutorBackend) FollowUpQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	return f.text(ctx, "follow-up", p)
}

func (f *fakeTutorBackend) Summary(ctx context.Context, p model.TutorPrompt) (string, error) {
	return f.text(ctx, "summary", p)
}

func (f *fakeTutorBackend) KnowledgeGap(ctx context.Context, p model.TutorPrompt) (string, error) {
	return f.text(ctx, "knowledge-gap", p)
}

type fakeTranscriptStore struct {
	mu       sync.Mutex
	data     map[string]model.TutorTranscript
	reads    int
	writes   int
	writeErr error
}

func newFakeStore() *fakeTranscriptStore {
	return &fakeTranscriptStore{data: map[string]model.TutorTranscript{}}
}

func (s *fakeTranscriptStore) ReadTranscript(ctx context.Context, sessionID string) (*model.TutorTranscript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	t, ok := s.data[sessionID]
	if !ok {
		return nil, nil
	}
	t.Messages = append([]model.Turn(nil), t.Messages...)
	return &t, nil
}

func (s *fakeTranscriptStore) WriteTranscript(ctx context.Context, t *model.TutorTranscript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	cp := *t
	cp.Messages = append([]model.Turn(nil), t.Messages...)
	s.data[t.UserSessionID] = cp
	return nil
}

func (s *fakeTranscriptStore) get(id string) (model.TutorTranscript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data[id]
	return t, ok
}

func seedQuestions() []model.Question {
	return []model.Question{
		{QuizID: 10, QuestionNumber: 1, QuestionText: "2 + 2 = ?", QuestionType: model.QuestionTypeMCQ, Options: []model.Option{
			{OptionIndex: 0, OptionText: "3"},
			{OptionIndex: 1, OptionText: "4", IsCorrect: true},
			{OptionIndex: 2, OptionText: "5"},
		}},
		{QuizID: 10, QuestionNumber: 2, QuestionText: "3 * 3 = ?", QuestionType: model.QuestionTypeMCQ, Options: []model.Option{
			{OptionIndex: 0, OptionText: "6"},
			{OptionIndex: 1, OptionText: "9", IsCorrect: true},
		}},
		{QuizID: 10, QuestionNumber: 3, QuestionText: "Capital of France?", QuestionType: model.QuestionTypeShortAnswer, CorrectAnswer: "Paris"},
	}
}
