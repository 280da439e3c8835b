package session

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/dto"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/service"
)

const (
	headerUserID         = "X-User-ID"
	headerOrganizationID = "X-Organization-ID"
)

type QuizSessionController struct {
	sessions service.SessionManager
}

func NewQuizSessionController(sessions service.SessionManager) *QuizSessionController {
	return &QuizSessionController{sessions: sessions}
}

// RegisterRoutes mounts the session API under group.
func (c *QuizSessionController) RegisterRoutes(group *gin.RouterGroup) {
	s := group.Group("/quiz-sessions")
	s.POST("", c.OpenSession)
	s.GET("/:session_id", c.GetSession)
	s.DELETE("/:session_id", c.CloseSession)
	s.POST("/:session_id/reload", c.ReloadSession)
	s.POST("/:session_id/select-option", c.SelectOption)
	s.POST("/:session_id/text-answer", c.SetTextAnswer)
	s.POST("/:session_id/submit", c.SubmitAnswer)
	s.POST("/:session_id/navigate", c.Navigate)
	s.POST("/:session_id/questions/:number", c.SelectQuestion)
	s.POST("/:session_id/retake", c.Retake)
	s.POST("/:session_id/final-submit", c.FinalSubmit)
	s.GET("/:session_id/tutor", c.GetTutor)
	s.POST("/:session_id/tutor/messages", c.SendTutorMessage)
}

// OpenSession godoc
// @Summary Open a quiz session
// @Description Loads questions and saved progress for the caller and positions the session on the first unanswered question.
// @Tags Quiz Sessions
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token forwarded to the backend"
// @Param X-User-ID header int true "User ID"
// @Param X-Organization-ID header int true "Organization ID"
// @Param session body dto.OpenSessionRequest true "Quiz to open"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 502 {object} dto.ErrorResponse "Backend unavailable; session opened in error phase"
// @Router /quiz-sessions [post]
func (c *QuizSessionController) OpenSession(ctx *gin.Context) {
	sc, err := sessionContext(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid session headers", Details: []string{err.Error()}})
		return
	}
	var req dto.OpenSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("OpenSession: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	id, s, err := c.sessions.Open(ctx.Request.Context(), sc, service.OpenRequest{
		QuizID:    req.QuizID,
		SubjectID: req.SubjectID,
		TopicID:   req.TopicID,
	})
	if err != nil {
		log.Error().Err(err).Int("quizID", req.QuizID).Int("userID", sc.UserID).Msg("OpenSession: load failed")
		resp := sessionResponse(id, s.Snapshot())
		ctx.JSON(statusFor(err), resp)
		return
	}
	ctx.JSON(http.StatusCreated, sessionResponse(id, s.Snapshot()))
}

// GetSession godoc
// @Summary Get a quiz session
// @Tags Quiz Sessions
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /quiz-sessions/{session_id} [get]
func (c *QuizSessionController) GetSession(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// CloseSession godoc
// @Summary Close a quiz session
// @Tags Quiz Sessions
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /quiz-sessions/{session_id} [delete]
func (c *QuizSessionController) CloseSession(ctx *gin.Context) {
	userID, err := headerInt(ctx, headerUserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid session headers", Details: []string{err.Error()}})
		return
	}
	if err := c.sessions.Close(ctx.Param("session_id"), userID); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ReloadSession godoc
// @Summary Retry loading a session
// @Description Re-fetches questions and progress, typically after the session landed in the error phase.
// @Tags Quiz Sessions
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 502 {object} dto.ErrorResponse "Backend unavailable"
// @Router /quiz-sessions/{session_id}/reload [post]
func (c *QuizSessionController) ReloadSession(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	if err := s.Load(ctx.Request.Context()); err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("ReloadSession: load failed")
		if errors.Is(err, service.ErrSubmitPending) {
			writeError(ctx, err)
			return
		}
		ctx.JSON(statusFor(err), sessionResponse(id, s.Snapshot()))
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// SelectOption godoc
// @Summary Select an option of the current question
// @Tags Quiz Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Param option body dto.SelectOptionRequest true "Option index"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown option"
// @Failure 409 {object} dto.ErrorResponse "Question already checked"
// @Router /quiz-sessions/{session_id}/select-option [post]
func (c *QuizSessionController) SelectOption(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	var req dto.SelectOptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if err := s.SelectOption(*req.OptionIndex); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// SetTextAnswer godoc
// @Summary Set the draft answer of a short-answer question
// @Tags Quiz Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Param answer body dto.TextAnswerRequest true "Answer text"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} dto.ErrorResponse "Question already checked"
// @Router /quiz-sessions/{session_id}/text-answer [post]
func (c *QuizSessionController) SetTextAnswer(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	var req dto.TextAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if err := s.SetTextAnswer(req.Text); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// SubmitAnswer godoc
// @Summary Check the current answer
// @Description Grades the draft answer, saves progress and opens the tutor when the answer is wrong.
// @Tags Quiz Sessions
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} dto.ErrorResponse "Nothing selected, already checked or a submission is pending"
// @Failure 502 {object} dto.ErrorResponse "Saving progress or evaluation failed"
// @Router /quiz-sessions/{session_id}/submit [post]
func (c *QuizSessionController) SubmitAnswer(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	if err := s.Submit(ctx.Request.Context()); err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("SubmitAnswer failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// Navigate godoc
// @Summary Move to the next or previous question
// @Tags Quiz Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Param direction body dto.NavigateRequest true "next or previous"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid direction or out of range"
// @Router /quiz-sessions/{session_id}/navigate [post]
func (c *QuizSessionController) Navigate(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	var req dto.NavigateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	dir := service.DirectionNext
	if req.Direction == "previous" {
		dir = service.DirectionPrevious
	}
	if err := s.Navigate(ctx.Request.Context(), dir); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// SelectQuestion godoc
// @Summary Jump to a question
// @Tags Quiz Sessions
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Param number path int true "Question number (1-based)"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse "Out of range"
// @Router /quiz-sessions/{session_id}/questions/{number} [post]
func (c *QuizSessionController) SelectQuestion(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid question number format"})
		return
	}
	if err := s.SelectQuestion(ctx.Request.Context(), number); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// Retake godoc
// @Summary Start a new attempt
// @Tags Quiz Sessions
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 502 {object} dto.ErrorResponse "Starting the attempt failed"
// @Router /quiz-sessions/{session_id}/retake [post]
func (c *QuizSessionController) Retake(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	if err := s.Retake(ctx.Request.Context()); err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("Retake failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// FinalSubmit godoc
// @Summary Submit the whole quiz
// @Tags Quiz Sessions
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} dto.ErrorResponse "Quiz incomplete or already submitted"
// @Failure 502 {object} dto.ErrorResponse "Submission failed"
// @Router /quiz-sessions/{session_id}/final-submit [post]
func (c *QuizSessionController) FinalSubmit(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	if _, err := s.FinalSubmit(ctx.Request.Context()); err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("FinalSubmit failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse(id, s.Snapshot()))
}

// GetTutor godoc
// @Summary Get the tutor conversation of the current question
// @Tags Tutor
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.TutorResponse
// @Failure 409 {object} dto.ErrorResponse "No tutor for the current question"
// @Router /quiz-sessions/{session_id}/tutor [get]
func (c *QuizSessionController) GetTutor(ctx *gin.Context) {
	_, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	view, err := s.TutorView()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tutorResponse(view))
}

// SendTutorMessage godoc
// @Summary Reply to the tutor
// @Tags Tutor
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param session_id path string true "Session ID"
// @Param message body dto.TutorMessageRequest true "Student reply"
// @Success 200 {object} dto.TutorResponse
// @Failure 400 {object} dto.ErrorResponse "Empty message"
// @Failure 409 {object} dto.ErrorResponse "Tutor busy or conversation concluded"
// @Failure 502 {object} dto.ErrorResponse "Evaluation failed; the error is also recorded in the transcript"
// @Router /quiz-sessions/{session_id}/tutor/messages [post]
func (c *QuizSessionController) SendTutorMessage(ctx *gin.Context) {
	id, s, ok := c.lookup(ctx)
	if !ok {
		return
	}
	var req dto.TutorMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	view, err := s.SendTutorMessage(ctx.Request.Context(), req.Content)
	if err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("SendTutorMessage failed")
		var evalErr *service.EvaluationError
		if errors.As(err, &evalErr) {
			// The inline error turn is part of the view.
			ctx.JSON(http.StatusBadGateway, tutorResponse(view))
			return
		}
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tutorResponse(view))
}

func (c *QuizSessionController) lookup(ctx *gin.Context) (string, *service.AnswerSession, bool) {
	userID, err := headerInt(ctx, headerUserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid session headers", Details: []string{err.Error()}})
		return "", nil, false
	}
	id := ctx.Param("session_id")
	s, err := c.sessions.Get(id, userID)
	if err != nil {
		writeError(ctx, err)
		return "", nil, false
	}
	return id, s, true
}

func sessionContext(ctx *gin.Context) (model.SessionContext, error) {
	userID, err := headerInt(ctx, headerUserID)
	if err != nil {
		return model.SessionContext{}, err
	}
	orgID, err := headerInt(ctx, headerOrganizationID)
	if err != nil {
		return model.SessionContext{}, err
	}
	token := strings.TrimSpace(strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer "))
	return model.SessionContext{UserID: userID, OrganizationID: orgID, AuthToken: token}, nil
}

func headerInt(ctx *gin.Context, name string) (int, error) {
	raw := ctx.GetHeader(name)
	if raw == "" {
		return 0, errors.New("missing " + name + " header")
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New("invalid " + name + " header")
	}
	return v, nil
}

func statusFor(err error) int {
	var (
		fetchErr   *service.FetchError
		persistErr *service.PersistError
		evalErr    *service.EvaluationError
	)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidOption),
		errors.Is(err, service.ErrQuestionOutOfRange),
		errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.As(err, &fetchErr), errors.As(err, &persistErr), errors.As(err, &evalErr):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrAnswerLocked),
		errors.Is(err, service.ErrSubmitPending),
		errors.Is(err, service.ErrQuizIncomplete),
		errors.Is(err, service.ErrQuizCompleted),
		errors.Is(err, service.ErrNotReady),
		errors.Is(err, service.ErrNoTutor),
		errors.Is(err, service.ErrConversationConcluded),
		errors.Is(err, service.ErrTutorBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), dto.ErrorResponse{Message: err.Error()})
}

func sessionResponse(id string, view service.SessionView) dto.SessionResponse {
	var resp dto.SessionResponse
	if err := copier.CopyWithOption(&resp, &view, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Failed to map session view")
	}
	resp.SessionID = id
	resp.Phase = string(view.Phase)
	if view.Tutor != nil {
		t := tutorResponse(*view.Tutor)
		resp.Tutor = &t
	}
	if sub := view.Submission; sub != nil {
		resp.Submission = &dto.SubmissionResponse{
			ID:             sub.ID,
			QuizID:         sub.QuizID,
			Score:          sub.Score,
			TotalQuestions: sub.TotalQuestions,
			TimeSpent:      sub.TimeSpent,
			AttemptNumber:  sub.AttemptNumber,
			SubmittedAt:    sub.SubmittedAt,
			Answers: lo.MapValues(sub.Answers, func(r model.AnswerRecord, _ string) dto.AnswerResponse {
				return dto.AnswerResponse{Selected: r.Selected, IsCorrect: r.IsCorrect}
			}),
		}
	}
	if resp.CheckedQuestions == nil {
		resp.CheckedQuestions = []int{}
	}
	return resp
}

func tutorResponse(view service.TutorView) dto.TutorResponse {
	var resp dto.TutorResponse
	if err := copier.CopyWithOption(&resp, &view, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Str("tutorSession", view.SessionID).Msg("Failed to map tutor view")
	}
	resp.Phase = string(view.Phase)
	if resp.Messages == nil {
		resp.Messages = []dto.TurnResponse{}
	}
	return resp
}
