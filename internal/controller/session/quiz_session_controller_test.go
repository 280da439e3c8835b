package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/dto"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/service"
)

type memoryQuiz struct {
	mu          sync.Mutex
	questionErr error
	progress    *model.QuizProgress
	submissions int
}

func (m *memoryQuiz) FetchQuestions(ctx context.Context, quizID, organizationID int) ([]model.Question, error) {
	if m.questionErr != nil {
		return nil, m.questionErr
	}
	return []model.Question{
		{ID: 1, QuizID: quizID, QuestionNumber: 1, QuestionText: "2+2?", QuestionType: model.QuestionTypeMCQ, Options: []model.Option{
			{OptionIndex: 0, OptionText: "3"},
			{OptionIndex: 1, OptionText: "4", IsCorrect: true},
		}},
		{ID: 2, QuizID: quizID, QuestionNumber: 2, QuestionText: "3*3?", QuestionType: model.QuestionTypeMCQ, Options: []model.Option{
			{OptionIndex: 0, OptionText: "6"},
			{OptionIndex: 1, OptionText: "9", IsCorrect: true},
		}},
	}, nil
}

func (m *memoryQuiz) FetchProgress(ctx context.Context, key model.ProgressKey) (*model.QuizProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progress == nil {
		return nil, nil
	}
	cp := *m.progress
	cp.Answers = m.progress.Answers.Clone()
	return &cp, nil
}

func (m *memoryQuiz) UpsertProgress(ctx context.Context, key model.ProgressKey, progress *model.QuizProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *progress
	cp.Answers = progress.Answers.Clone()
	m.progress = &cp
	return nil
}

func (m *memoryQuiz) StartAttempt(ctx context.Context, key model.ProgressKey) (int, error) {
	return 2, nil
}

func (m *memoryQuiz) CreateSubmission(ctx context.Context, key model.ProgressKey, submission *model.SubmissionRecord) (*model.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions++
	cp := *submission
	cp.ID = 100 + m.submissions
	return &cp, nil
}

type cannedTutor struct{}

func (cannedTutor) EvaluateAnswer(ctx context.Context, req model.EvaluationRequest) (bool, error) {
	return false, nil
}
func (cannedTutor) ContextualAnswer(ctx context.Context, p model.TutorPrompt) (string, error) {
	return "Multiplying 3 by itself gives 9.", nil
}
func (cannedTutor) InitialQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	return "What does 3*3 mean?", nil
}
func (cannedTutor) Feedback(ctx context.Context, p model.TutorPrompt) (string, error) {
	return "Close.", nil
}
func (cannedTutor) FollowUpQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	return "Try adding 3 three times.", nil
}
func (cannedTutor) Summary(ctx context.Context, p model.TutorPrompt) (string, error) {
	return "Summary.", nil
}
func (cannedTutor) KnowledgeGap(ctx context.Context, p model.TutorPrompt) (string, error) {
	return "Multiplication as repeated addition.", nil
}

type memoryTranscripts struct {
	mu   sync.Mutex
	byID map[string]model.TutorTranscript
}

func (m *memoryTranscripts) ReadTranscript(ctx context.Context, sessionID string) (*model.TutorTranscript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[sessionID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memoryTranscripts) WriteTranscript(ctx context.Context, transcript *model.TutorTranscript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[transcript.UserSessionID] = *transcript
	return nil
}

type fixedProvider struct {
	backends service.Backends
}

func (p fixedProvider) ForSession(sc model.SessionContext) service.Backends {
	return p.backends
}

func newTestRouter(quiz *memoryQuiz) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Tutor: config.Tutor{MaxRetries: 5}}
	provider := fixedProvider{backends: service.Backends{
		Quiz:        quiz,
		Tutor:       cannedTutor{},
		Transcripts: &memoryTranscripts{byID: map[string]model.TutorTranscript{}},
	}}
	r := gin.New()
	NewQuizSessionController(service.NewSessionManager(cfg, provider)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-Organization-ID", "1")
		req.Header.Set("Authorization", "Bearer tok")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) dto.SessionResponse {
	t.Helper()
	var resp dto.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestQuizSessionLifecycle(t *testing.T) {
	r := newTestRouter(&memoryQuiz{})
	open := dto.OpenSessionRequest{QuizID: 10, SubjectID: 2, TopicID: 3}

	if w := doJSON(t, r, http.MethodPost, "/api/v1/quiz-sessions", "", open); w.Code != http.StatusBadRequest {
		t.Fatalf("missing headers: got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/quiz-sessions", "7", open)
	if w.Code != http.StatusCreated {
		t.Fatalf("open: got %d %s", w.Code, w.Body.String())
	}
	sess := decodeSession(t, w)
	if sess.Phase != "ready" || sess.CurrentQuestion != 1 || sess.TotalQuestions != 2 {
		t.Fatalf("unexpected opened session: %+v", sess)
	}
	if sess.Question == nil || sess.Question.Options[1].IsCorrect != nil {
		t.Fatalf("correctness must stay hidden before checking: %+v", sess.Question)
	}
	base := "/api/v1/quiz-sessions/" + sess.SessionID

	if w := doJSON(t, r, http.MethodGet, base, "8", nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign user: got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/select-option", "7", map[string]int{"option_index": 7}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown option: got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/select-option", "7", map[string]int{"option_index": 1}); w.Code != http.StatusOK {
		t.Fatalf("select: got %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, base+"/submit", "7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: got %d %s", w.Code, w.Body.String())
	}
	sess = decodeSession(t, w)
	if !sess.Checked || sess.IsCorrect == nil || !*sess.IsCorrect || sess.Score != 1 || sess.AnsweredQuestions != 1 {
		t.Fatalf("unexpected checked session: %+v", sess)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/select-option", "7", map[string]int{"option_index": 0}); w.Code != http.StatusConflict {
		t.Fatalf("checked answer must be locked: got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, base+"/navigate", "7", map[string]string{"direction": "sideways"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad direction: got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, base+"/navigate", "7", map[string]string{"direction": "next"})
	if sess = decodeSession(t, w); sess.CurrentQuestion != 2 || sess.Checked {
		t.Fatalf("navigate: %+v", sess)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/final-submit", "7", nil); w.Code != http.StatusConflict {
		t.Fatalf("incomplete final submit: got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, base+"/tutor", "7", nil); w.Code != http.StatusConflict {
		t.Fatalf("no tutor yet: got %d", w.Code)
	}

	doJSON(t, r, http.MethodPost, base+"/select-option", "7", map[string]int{"option_index": 0})
	w = doJSON(t, r, http.MethodPost, base+"/submit", "7", nil)
	sess = decodeSession(t, w)
	if sess.IsCorrect == nil || *sess.IsCorrect || sess.Tutor == nil {
		t.Fatalf("wrong answer should open the tutor: %+v", sess)
	}
	if sess.Tutor.SessionID != model.TutorSessionID(7, 10, 2, 1) {
		t.Fatalf("tutor session id = %q", sess.Tutor.SessionID)
	}

	w = doJSON(t, r, http.MethodGet, base+"/tutor", "7", nil)
	var tutor dto.TutorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tutor); err != nil || w.Code != http.StatusOK {
		t.Fatalf("tutor: %d %v", w.Code, err)
	}
	if tutor.Phase != string(service.TutorAwaitingUser) || len(tutor.Messages) != 4 {
		t.Fatalf("unexpected tutor view: %+v", tutor)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/tutor/messages", "7", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty tutor message: got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, base+"/final-submit", "7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("final submit: got %d %s", w.Code, w.Body.String())
	}
	sess = decodeSession(t, w)
	if sess.Phase != "completed" || sess.Submission == nil || sess.Submission.Score != 1 || len(sess.Submission.Answers) != 2 {
		t.Fatalf("unexpected completed session: %+v", sess)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/final-submit", "7", nil); w.Code != http.StatusConflict {
		t.Fatalf("second final submit: got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodDelete, base, "7", nil); w.Code != http.StatusNoContent {
		t.Fatalf("close: got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, base, "7", nil); w.Code != http.StatusNotFound {
		t.Fatalf("closed session: got %d", w.Code)
	}
}

func TestOpenSessionBackendFailure(t *testing.T) {
	quiz := &memoryQuiz{questionErr: errors.New("connection refused")}
	r := newTestRouter(quiz)

	w := doJSON(t, r, http.MethodPost, "/api/v1/quiz-sessions", "7", dto.OpenSessionRequest{QuizID: 10, SubjectID: 2, TopicID: 3})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("got %d", w.Code)
	}
	sess := decodeSession(t, w)
	if sess.Phase != "error" || sess.Error == "" || sess.SessionID == "" {
		t.Fatalf("unexpected failed session: %+v", sess)
	}

	quiz.questionErr = nil
	w = doJSON(t, r, http.MethodPost, "/api/v1/quiz-sessions/"+sess.SessionID+"/reload", "7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload: got %d %s", w.Code, w.Body.String())
	}
	if sess = decodeSession(t, w); sess.Phase != "ready" {
		t.Fatalf("reload should recover: %+v", sess)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrSessionNotFound, http.StatusNotFound},
		{"invalid option", service.ErrInvalidOption, http.StatusBadRequest},
		{"fetch", &service.FetchError{Op: "questions", Err: errors.New("x")}, http.StatusBadGateway},
		{"persist", &service.PersistError{Op: "progress", Err: errors.New("x")}, http.StatusBadGateway},
		{"evaluation", &service.EvaluationError{Op: "feedback", Err: errors.New("x")}, http.StatusBadGateway},
		{"busy", service.ErrTutorBusy, http.StatusConflict},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
