package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

type SessionParams struct {
	Context         model.SessionContext
	QuizID          int
	SubjectID       int
	TopicID         int
	MaxTutorRetries int
	Now             func() time.Time
}

// AnswerSession is one student's pass through one quiz: the current question, the draft answer,
// whether it has been checked, and the tutor opened for a wrong answer.
//
// progressAnswers mirrors what the backend has accepted; sessionAnswers is the working set. Only
// questions present in progressAnswers are shown as checked.
type AnswerSession struct {
	mu         sync.Mutex
	sc         model.SessionContext
	key        model.ProgressKey
	backends   Backends
	reconciler ProgressReconciler
	maxRetries int
	now        func() time.Time

	phase           SessionPhase
	loadErr         error
	questions       []model.Question
	current         int
	selected        string
	hasSelection    bool
	checked         bool
	progressAnswers model.AnswerMap
	sessionAnswers  model.AnswerMap
	attempt         int
	baseTimeSpent   int
	startedAt       time.Time
	pending         bool
	tutor           *TutorDialogue
	submission      *model.SubmissionRecord
}

func NewAnswerSession(p SessionParams, backends Backends) *AnswerSession {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &AnswerSession{
		sc: p.Context,
		key: model.ProgressKey{
			QuizID:    p.QuizID,
			SubjectID: p.SubjectID,
			TopicID:   p.TopicID,
			UserID:    p.Context.UserID,
		},
		backends:        backends,
		reconciler:      NewProgressReconciler(backends.Quiz, now),
		maxRetries:      p.MaxTutorRetries,
		now:             now,
		phase:           PhaseLoading,
		current:         1,
		attempt:         1,
		progressAnswers: model.AnswerMap{},
		sessionAnswers:  model.AnswerMap{},
	}
}

func (s *AnswerSession) Key() model.ProgressKey {
	return s.key
}

// Load fetches questions and progress and positions the session on the resume target.
// A failed read leaves the session in PhaseError; calling Load again retries.
func (s *AnswerSession) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	s.phase = PhaseLoading
	s.loadErr = nil
	old := s.detachTutorLocked()
	s.mu.Unlock()
	closeTutor(old)

	res := s.reconciler.FetchAll(ctx, s.key, s.sc.OrganizationID)

	s.mu.Lock()
	if res.QuestionErr == nil {
		s.questions = res.Questions
	}
	if res.ProgressErr == nil {
		s.applyProgressLocked(res.Progress)
	}
	if err := errors.Join(res.QuestionErr, res.ProgressErr); err != nil {
		s.phase = PhaseError
		s.loadErr = err
		s.mu.Unlock()
		return err
	}

	s.current = s.reconciler.ResumeTarget(len(s.questions), res.Progress)
	if s.current > len(s.questions) && len(s.questions) > 0 {
		s.current = len(s.questions)
	}
	s.phase = PhaseReady
	s.rehydrateLocked()
	resumeAt := s.current
	seed, reopen := s.tutorSeedLocked()
	s.mu.Unlock()

	log.Info().Str("progressKey", s.key.String()).Int("questions", len(res.Questions)).Int("resumeAt", resumeAt).Msg("Quiz session loaded")
	if reopen {
		s.startTutor(ctx, seed)
	}
	return nil
}

func (s *AnswerSession) applyProgressLocked(progress *model.QuizProgress) {
	s.progressAnswers = model.AnswerMap{}
	s.attempt = 1
	s.baseTimeSpent = 0
	if progress != nil {
		s.progressAnswers = progress.Answers.Clone()
		if progress.AttemptNumber > 0 {
			s.attempt = progress.AttemptNumber
		}
		s.baseTimeSpent = progress.TimeSpent
	}
	s.sessionAnswers = s.progressAnswers.Clone()
	s.startedAt = s.now()
}

// SelectOption records a draft mcq choice. Correctness stays unknown until Submit.
func (s *AnswerSession) SelectOption(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.editableQuestionLocked()
	if err != nil {
		return err
	}
	if q.IsShortAnswer() {
		return ErrInvalidOption
	}
	selected := strconv.Itoa(index)
	if _, ok := q.OptionBySelection(selected); !ok {
		return ErrInvalidOption
	}
	s.setDraftLocked(selected)
	return nil
}

// SetTextAnswer records a draft short answer. Blank text clears the draft.
func (s *AnswerSession) SetTextAnswer(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.editableQuestionLocked()
	if err != nil {
		return err
	}
	if !q.IsShortAnswer() {
		return ErrInvalidOption
	}
	if strings.TrimSpace(text) == "" {
		delete(s.sessionAnswers, model.AnswerKey(s.current))
		s.selected = ""
		s.hasSelection = false
		return nil
	}
	s.setDraftLocked(text)
	return nil
}

func (s *AnswerSession) setDraftLocked(selected string) {
	s.selected = selected
	s.hasSelection = true
	s.checked = false
	s.sessionAnswers[model.AnswerKey(s.current)] = model.AnswerRecord{Selected: selected, IsCorrect: false}
}

func (s *AnswerSession) editableQuestionLocked() (*model.Question, error) {
	if err := s.interactiveLocked(); err != nil {
		return nil, err
	}
	if s.checked {
		return nil, ErrAnswerLocked
	}
	return s.currentQuestionLocked()
}

// Submit grades the draft answer, persists the merged answers and, for a wrong answer, opens the tutor.
// It does nothing when the question is already checked or no answer is drafted.
func (s *AnswerSession) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.interactiveLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.checked || !s.hasSelection || s.selected == "" {
		s.mu.Unlock()
		return nil
	}
	q, err := s.currentQuestionLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	question := *q
	selected := s.selected
	s.pending = true
	s.mu.Unlock()

	correct, err := s.grade(ctx, question, selected)
	if err != nil {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	key := model.AnswerKey(question.QuestionNumber)
	graded := model.AnswerRecord{Selected: selected, IsCorrect: correct}
	s.sessionAnswers[key] = graded
	merged := model.Merge(s.progressAnswers, s.sessionAnswers)
	state := model.MergedState{
		Answers:         merged,
		CurrentQuestion: question.QuestionNumber,
		TotalQuestions:  len(s.questions),
		TimeSpent:       s.elapsedLocked(),
		AttemptNumber:   s.attempt,
	}
	s.mu.Unlock()

	_, err = s.reconciler.PersistAnswer(ctx, s.key, state)

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.mu.Unlock()
		return err
	}
	// Drafts on other questions travel in the merge but stay unchecked here.
	s.progressAnswers[key] = graded
	s.rehydrateLocked()
	seed, reopen := s.tutorSeedLocked()
	s.mu.Unlock()

	log.Info().Str("progressKey", s.key.String()).Int("question", question.QuestionNumber).Bool("correct", correct).Msg("Answer submitted")
	if reopen {
		s.startTutor(ctx, seed)
	}
	return nil
}

func (s *AnswerSession) grade(ctx context.Context, q model.Question, selected string) (bool, error) {
	if !q.IsShortAnswer() {
		opt, ok := q.OptionBySelection(selected)
		return ok && opt.IsCorrect, nil
	}
	correct, err := s.backends.Tutor.EvaluateAnswer(ctx, model.EvaluationRequest{
		QuestionText:     q.QuestionText,
		ContextualAnswer: q.CorrectAnswer,
		CorrectAnswer:    q.CorrectAnswer,
		UserAnswer:       selected,
	})
	if err != nil {
		log.Error().Err(err).Str("progressKey", s.key.String()).Int("question", q.QuestionNumber).Msg("Submit: short answer evaluation failed")
		return false, &EvaluationError{Op: "short answer", Err: err}
	}
	return correct, nil
}

// Navigate moves one question back or forward, clamped to the quiz.
func (s *AnswerSession) Navigate(ctx context.Context, dir Direction) error {
	s.mu.Lock()
	target := s.current + int(dir)
	total := len(s.questions)
	s.mu.Unlock()
	if target < 1 {
		target = 1
	}
	if target > total {
		target = total
	}
	return s.moveTo(ctx, target)
}

func (s *AnswerSession) SelectQuestion(ctx context.Context, number int) error {
	s.mu.Lock()
	total := len(s.questions)
	s.mu.Unlock()
	if number < 1 || number > total {
		return ErrQuestionOutOfRange
	}
	return s.moveTo(ctx, number)
}

func (s *AnswerSession) moveTo(ctx context.Context, target int) error {
	s.mu.Lock()
	if err := s.navigableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if target < 1 {
		s.mu.Unlock()
		return ErrQuestionOutOfRange
	}
	old := s.detachTutorLocked()
	s.current = target
	s.rehydrateLocked()
	seed, reopen := s.tutorSeedLocked()
	s.mu.Unlock()

	closeTutor(old)
	if reopen {
		s.startTutor(ctx, seed)
	}
	return nil
}

// Retake starts a new attempt and clears every answer.
func (s *AnswerSession) Retake(ctx context.Context) error {
	s.mu.Lock()
	if err := s.navigableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending = true
	s.mu.Unlock()

	attempt, err := s.backends.Quiz.StartAttempt(ctx, s.key)
	if err != nil {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		log.Error().Err(err).Str("progressKey", s.key.String()).Msg("Retake: start attempt failed")
		return &PersistError{Op: "start attempt", Err: err}
	}

	progress, err := s.reconciler.FetchProgress(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("progressKey", s.key.String()).Msg("Retake: progress refresh failed, starting from empty counters")
		progress = nil
	}
	if progress != nil && progress.AttemptNumber > attempt {
		attempt = progress.AttemptNumber
	}

	s.mu.Lock()
	old := s.detachTutorLocked()
	s.pending = false
	s.progressAnswers = model.AnswerMap{}
	s.sessionAnswers = model.AnswerMap{}
	s.attempt = attempt
	s.current = 1
	s.baseTimeSpent = 0
	s.startedAt = s.now()
	s.submission = nil
	s.phase = PhaseReady
	s.rehydrateLocked()
	s.mu.Unlock()

	closeTutor(old)
	log.Info().Str("progressKey", s.key.String()).Int("attempt", attempt).Msg("Quiz retake started")
	return nil
}

// FinalSubmit records the finished attempt. Every question must have a persisted answer.
func (s *AnswerSession) FinalSubmit(ctx context.Context) (*model.SubmissionRecord, error) {
	s.mu.Lock()
	if err := s.interactiveLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	merged := model.Merge(s.progressAnswers, s.sessionAnswers)
	total := len(s.questions)
	if !model.CountersFor(s.progressAnswers, total).Completed {
		s.mu.Unlock()
		return nil, ErrQuizIncomplete
	}
	state := model.MergedState{
		Answers:         merged,
		CurrentQuestion: s.current,
		TotalQuestions:  total,
		TimeSpent:       s.elapsedLocked(),
		AttemptNumber:   s.attempt,
	}
	s.pending = true
	s.mu.Unlock()

	rec, err := s.reconciler.PersistFinal(ctx, s.key, state)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	if err != nil {
		return nil, err
	}
	s.submission = rec
	s.phase = PhaseCompleted
	return rec, nil
}

// SendTutorMessage forwards a reply to the tutor of the current question.
func (s *AnswerSession) SendTutorMessage(ctx context.Context, text string) (TutorView, error) {
	s.mu.Lock()
	t := s.tutor
	s.mu.Unlock()
	if t == nil {
		return TutorView{}, ErrNoTutor
	}
	err := t.SendMessage(ctx, text)
	return t.View(), err
}

func (s *AnswerSession) TutorView() (TutorView, error) {
	s.mu.Lock()
	t := s.tutor
	s.mu.Unlock()
	if t == nil {
		return TutorView{}, ErrNoTutor
	}
	return t.View(), nil
}

// Close releases the session's tutor.
func (s *AnswerSession) Close() {
	s.mu.Lock()
	old := s.detachTutorLocked()
	s.mu.Unlock()
	closeTutor(old)
}

func (s *AnswerSession) startTutor(ctx context.Context, seed TutorSeed) {
	d := NewTutorDialogue(seed, s.backends.Tutor, s.backends.Transcripts, s.maxRetries, s.now)

	s.mu.Lock()
	if s.current != seed.Question.QuestionNumber || s.attempt != seed.AttemptNumber {
		s.mu.Unlock()
		return
	}
	old := s.tutor
	s.tutor = d
	s.mu.Unlock()
	closeTutor(old)

	if err := d.Activate(ctx); err != nil && !errors.Is(err, ErrStaleSession) {
		log.Warn().Err(err).Str("tutorSession", d.SessionID()).Msg("Tutor activation incomplete")
	}
}

// tutorSeedLocked reports whether the current question is checked and wrong, which means it gets a tutor.
func (s *AnswerSession) tutorSeedLocked() (TutorSeed, bool) {
	q, err := s.currentQuestionLocked()
	if err != nil {
		return TutorSeed{}, false
	}
	seed := TutorSeed{
		UserID:        s.sc.UserID,
		QuizID:        s.key.QuizID,
		SubjectID:     s.key.SubjectID,
		TopicID:       s.key.TopicID,
		AttemptNumber: s.attempt,
		Question:      *q,
	}
	rec, ok := s.progressAnswers.Get(q.QuestionNumber)
	if !s.checked || !ok || rec.IsCorrect {
		return seed, false
	}
	seed.StudentAnswer = displayAnswer(*q, rec.Selected)
	return seed, true
}

func displayAnswer(q model.Question, selected string) string {
	if q.IsShortAnswer() {
		return selected
	}
	if opt, ok := q.OptionBySelection(selected); ok {
		return opt.OptionText
	}
	return selected
}

func (s *AnswerSession) rehydrateLocked() {
	rec, ok := s.sessionAnswers.Get(s.current)
	s.selected = rec.Selected
	s.hasSelection = ok
	s.checked = s.progressAnswers.Has(s.current)
	if s.phase == PhaseCompleted || s.phase == PhaseError || s.phase == PhaseLoading {
		return
	}
	if s.checked {
		s.phase = PhaseChecked
	} else {
		s.phase = PhaseReady
	}
}

func (s *AnswerSession) detachTutorLocked() *TutorDialogue {
	old := s.tutor
	s.tutor = nil
	return old
}

func closeTutor(t *TutorDialogue) {
	if t != nil {
		t.Close()
	}
}

func (s *AnswerSession) navigableLocked() error {
	switch s.phase {
	case PhaseLoading, PhaseError:
		return ErrNotReady
	}
	if s.pending {
		return ErrSubmitPending
	}
	return nil
}

func (s *AnswerSession) interactiveLocked() error {
	if err := s.navigableLocked(); err != nil {
		return err
	}
	if s.phase == PhaseCompleted {
		return ErrQuizCompleted
	}
	return nil
}

func (s *AnswerSession) currentQuestionLocked() (*model.Question, error) {
	if s.current < 1 || s.current > len(s.questions) {
		return nil, ErrQuestionOutOfRange
	}
	return &s.questions[s.current-1], nil
}

func (s *AnswerSession) elapsedLocked() int {
	return s.baseTimeSpent + int(s.now().Sub(s.startedAt).Seconds())
}

// Snapshot copies the session state for rendering. Correct options are only revealed once checked.
func (s *AnswerSession) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := model.CountersFor(s.progressAnswers, len(s.questions))
	v := SessionView{
		Phase:             s.phase,
		QuizID:            s.key.QuizID,
		SubjectID:         s.key.SubjectID,
		TopicID:           s.key.TopicID,
		AttemptNumber:     s.attempt,
		CurrentQuestion:   s.current,
		TotalQuestions:    len(s.questions),
		Selected:          s.selected,
		HasSelection:      s.hasSelection,
		Checked:           s.checked,
		AnsweredQuestions: counters.AnsweredQuestions,
		Score:             counters.Score,
		Completed:         counters.Completed,
		Pending:           s.pending,
		Submission:        s.submission,
	}
	if s.loadErr != nil {
		v.Error = s.loadErr.Error()
	}
	if !s.startedAt.IsZero() {
		v.TimeSpent = s.elapsedLocked()
	}
	for k := range s.progressAnswers {
		if n, err := strconv.Atoi(k); err == nil {
			v.CheckedQuestions = append(v.CheckedQuestions, n)
		}
	}
	sort.Ints(v.CheckedQuestions)

	if q, err := s.currentQuestionLocked(); err == nil {
		v.Question = questionView(*q, s.checked)
		if s.checked {
			rec, _ := s.progressAnswers.Get(q.QuestionNumber)
			correct := rec.IsCorrect
			v.IsCorrect = &correct
		}
	}
	if s.tutor != nil {
		tv := s.tutor.View()
		v.Tutor = &tv
	}
	return v
}

func questionView(q model.Question, reveal bool) *QuestionView {
	qv := &QuestionView{
		QuestionNumber:  q.QuestionNumber,
		QuestionText:    q.QuestionText,
		QuestionType:    q.QuestionType,
		IsMathsQuestion: q.IsMathsQuestion,
		IsShortAnswer:   q.IsShortAnswer(),
	}
	for _, o := range q.Options {
		ov := OptionView{OptionIndex: o.OptionIndex, OptionText: o.OptionText}
		if reveal {
			correct := o.IsCorrect
			ov.IsCorrect = &correct
		}
		qv.Options = append(qv.Options, ov)
	}
	if reveal {
		qv.CorrectAnswer = q.CorrectAnswer
	}
	return qv
}
