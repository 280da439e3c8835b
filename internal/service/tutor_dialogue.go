package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

const DefaultMaxTutorRetries = 5

const tutorErrorMessage = "Sorry, I encountered an error while preparing my reply. Please send your answer again."

type TutorPhase string

const (
	TutorIdle         TutorPhase = "idle"
	TutorHydrating    TutorPhase = "hydrating"
	TutorAwaitingUser TutorPhase = "awaiting_user"
	TutorEvaluating   TutorPhase = "evaluating"
	TutorConcluding   TutorPhase = "concluding"
	TutorConcluded    TutorPhase = "concluded"
	TutorClosed       TutorPhase = "closed"
)

// TutorSeed is what a wrong submission hands to the tutor.
type TutorSeed struct {
	UserID        int
	QuizID        int
	SubjectID     int
	TopicID       int
	AttemptNumber int
	Question      model.Question
	// StudentAnswer is the answer as the student saw it: option text for mcq, typed text otherwise.
	StudentAnswer string
}

func (s TutorSeed) SessionID() string {
	return model.TutorSessionID(s.UserID, s.QuizID, s.Question.QuestionNumber, s.AttemptNumber)
}

type TutorView struct {
	SessionID  string       `json:"session_id"`
	Phase      TutorPhase   `json:"phase"`
	Messages   []model.Turn `json:"messages"`
	RetryCount int          `json:"retry_count"`
	MaxRetries int          `json:"max_retries"`
	Concluded  bool         `json:"concluded"`
	Busy       bool         `json:"busy"`
}

// TutorDialogue drives one bounded Socratic conversation about one wrongly answered question.
// Network calls run without the lock held; results are applied only while the epoch they started in
// is still current.
type TutorDialogue struct {
	mu         sync.Mutex
	backend    TutorBackend
	store      TranscriptStore
	maxRetries int
	now        func() time.Time

	transcript  model.TutorTranscript
	phase       TutorPhase
	epoch       uint64
	busy        bool
	activated   bool
	introducing bool
	concluding  bool
}

// NewTutorDialogue builds an inactive tutor. A nil now uses time.Now.
func NewTutorDialogue(seed TutorSeed, backend TutorBackend, store TranscriptStore, maxRetries int, now func() time.Time) *TutorDialogue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxTutorRetries
	}
	if now == nil {
		now = time.Now
	}
	q := seed.Question
	return &TutorDialogue{
		backend:    backend,
		store:      store,
		maxRetries: maxRetries,
		now:        now,
		phase:      TutorIdle,
		transcript: model.TutorTranscript{
			UserSessionID:    seed.SessionID(),
			UserID:           seed.UserID,
			QuizID:           seed.QuizID,
			SubjectID:        seed.SubjectID,
			TopicID:          seed.TopicID,
			QuestionNumber:   q.QuestionNumber,
			AttemptNumber:    seed.AttemptNumber,
			OriginalQuestion: q.QuestionText,
			OptionsText:      optionsText(q),
			StudentAnswer:    seed.StudentAnswer,
			CorrectAnswer:    q.ReferenceAnswer(),
			Messages:         []model.Turn{},
		},
	}
}

func optionsText(q model.Question) string {
	return strings.Join(lo.Map(q.Options, func(o model.Option, _ int) string {
		return fmt.Sprintf("%d. %s", o.OptionIndex, o.OptionText)
	}), "\n")
}

func (d *TutorDialogue) SessionID() string {
	return d.transcript.UserSessionID
}

// Activate loads a stored conversation or starts a new one. Calling it again is a no-op.
func (d *TutorDialogue) Activate(ctx context.Context) error {
	d.mu.Lock()
	if d.activated || d.phase == TutorClosed {
		d.mu.Unlock()
		return nil
	}
	d.activated = true
	d.phase = TutorHydrating
	d.busy = true
	epoch := d.epoch
	sessionID := d.transcript.UserSessionID
	d.mu.Unlock()

	stored, err := d.store.ReadTranscript(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("tutorSession", sessionID).Msg("Activate: transcript read failed, starting fresh")
		stored = nil
	}

	d.mu.Lock()
	if d.stale(epoch) {
		d.mu.Unlock()
		return ErrStaleSession
	}
	if stored != nil && len(stored.Messages) > 0 {
		d.restoreLocked(stored)
		d.mu.Unlock()
		log.Info().Str("tutorSession", sessionID).Int("turns", len(stored.Messages)).Msg("Activate: resumed stored conversation")
		return nil
	}

	t := &d.transcript
	opening := t.OriginalQuestion
	if t.OptionsText != "" {
		opening += "\n\nOptions:\n" + t.OptionsText
	}
	d.appendLocked(model.RoleAssistant, opening, model.TurnQuestion)
	d.appendLocked(model.RoleUser, t.StudentAnswer, model.TurnAnswer)
	d.introducing = true
	d.mu.Unlock()

	return d.introduce(ctx, epoch)
}

// introduce adds the contextual answer and the first Socratic question. A contextual answer already in
// the transcript from an earlier failed attempt is kept.
func (d *TutorDialogue) introduce(ctx context.Context, epoch uint64) error {
	d.mu.Lock()
	needContextual := !d.hasTurnLocked(model.TurnContextual)
	prompt := d.promptLocked()
	d.mu.Unlock()

	if needContextual {
		contextual, err := d.backend.ContextualAnswer(ctx, prompt)
		if err := d.apply(epoch, "contextual answer", err, func() {
			d.transcript.ContextualAnswer = contextual
			d.appendLocked(model.RoleAssistant, contextual, model.TurnContextual)
			prompt = d.promptLocked()
		}); err != nil {
			return err
		}
	}

	question, err := d.backend.InitialQuestion(ctx, prompt)
	var snapshot model.TutorTranscript
	if err := d.apply(epoch, "initial question", err, func() {
		d.appendLocked(model.RoleAssistant, question, model.TurnQuestion)
		d.introducing = false
		d.phase = TutorAwaitingUser
		d.busy = false
		snapshot = d.snapshotLocked()
	}); err != nil {
		return err
	}

	d.persist(ctx, snapshot)
	return nil
}

// SendMessage takes the student's next reply and advances the conversation.
func (d *TutorDialogue) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	d.mu.Lock()
	switch {
	case d.phase == TutorClosed:
		d.mu.Unlock()
		return ErrStaleSession
	case d.phase == TutorConcluded:
		d.mu.Unlock()
		return ErrConversationConcluded
	case d.busy || !d.activated:
		d.mu.Unlock()
		return ErrTutorBusy
	}
	d.appendLocked(model.RoleUser, text, model.TurnAnswer)
	d.busy = true
	epoch := d.epoch
	if d.introducing {
		d.phase = TutorHydrating
		d.mu.Unlock()
		return d.introduce(ctx, epoch)
	}
	if d.concluding {
		d.mu.Unlock()
		return d.conclude(ctx, epoch)
	}
	d.phase = TutorEvaluating
	req := model.EvaluationRequest{
		QuestionText:     d.transcript.OriginalQuestion,
		ContextualAnswer: d.transcript.ContextualAnswer,
		CorrectAnswer:    d.transcript.CorrectAnswer,
		UserAnswer:       text,
	}
	d.mu.Unlock()

	correct, err := d.backend.EvaluateAnswer(ctx, req)
	var (
		prompt   model.TutorPrompt
		finished bool
	)
	if err := d.apply(epoch, "evaluation", err, func() {
		if correct || d.transcript.RetryCount >= d.maxRetries {
			d.concluding = true
			finished = true
			return
		}
		prompt = d.promptLocked()
	}); err != nil {
		return err
	}
	if finished {
		return d.conclude(ctx, epoch)
	}

	feedback, err := d.backend.Feedback(ctx, prompt)
	if err := d.apply(epoch, "feedback", err, func() {
		d.appendLocked(model.RoleAssistant, feedback, model.TurnFeedback)
		prompt = d.promptLocked()
	}); err != nil {
		return err
	}

	followUp, err := d.backend.FollowUpQuestion(ctx, prompt)
	var snapshot model.TutorTranscript
	if err := d.apply(epoch, "follow-up question", err, func() {
		d.appendLocked(model.RoleAssistant, followUp, model.TurnQuestion)
		d.transcript.RetryCount++
		d.phase = TutorAwaitingUser
		d.busy = false
		snapshot = d.snapshotLocked()
	}); err != nil {
		return err
	}

	d.persist(ctx, snapshot)
	return nil
}

// conclude reveals the answer, then adds the summary and knowledge gap. Steps already in the
// transcript from an earlier failed attempt are skipped.
func (d *TutorDialogue) conclude(ctx context.Context, epoch uint64) error {
	var prompt model.TutorPrompt
	d.mu.Lock()
	if d.stale(epoch) {
		d.mu.Unlock()
		return ErrStaleSession
	}
	d.phase = TutorConcluding
	if !d.hasTurnLocked(model.TurnActualAnswer) {
		d.appendLocked(model.RoleAssistant, "The correct answer is: "+d.transcript.CorrectAnswer, model.TurnActualAnswer)
	}
	needSummary := !d.hasTurnLocked(model.TurnSummary)
	prompt = d.promptLocked()
	d.mu.Unlock()

	if needSummary {
		summary, err := d.backend.Summary(ctx, prompt)
		if err := d.apply(epoch, "summary", err, func() {
			d.appendLocked(model.RoleAssistant, summary, model.TurnSummary)
			prompt = d.promptLocked()
		}); err != nil {
			return err
		}
	}

	gap, err := d.backend.KnowledgeGap(ctx, prompt)
	var snapshot model.TutorTranscript
	if err := d.apply(epoch, "knowledge gap", err, func() {
		d.appendLocked(model.RoleAssistant, gap, model.TurnKnowledgeGap)
		d.transcript.Concluded = true
		d.concluding = false
		d.phase = TutorConcluded
		d.busy = false
		snapshot = d.snapshotLocked()
	}); err != nil {
		return err
	}

	d.persist(ctx, snapshot)
	log.Info().Str("tutorSession", snapshot.UserSessionID).Int("retries", snapshot.RetryCount).Msg("Tutor conversation concluded")
	return nil
}

// apply re-takes the lock after a network call. A stale epoch drops the result; a call error becomes
// an inline apology and halts the conversation until the next student message.
func (d *TutorDialogue) apply(epoch uint64, op string, callErr error, onSuccess func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stale(epoch) {
		log.Debug().Str("tutorSession", d.transcript.UserSessionID).Str("op", op).Msg("Dropping late tutor result")
		return ErrStaleSession
	}
	if callErr != nil {
		log.Error().Err(callErr).Str("tutorSession", d.transcript.UserSessionID).Str("op", op).Msg("Tutor AI call failed")
		d.appendLocked(model.RoleAssistant, tutorErrorMessage, model.TurnError)
		d.phase = TutorAwaitingUser
		d.busy = false
		return &EvaluationError{Op: op, Err: callErr}
	}
	onSuccess()
	return nil
}

func (d *TutorDialogue) persist(ctx context.Context, snapshot model.TutorTranscript) {
	snapshot.UpdatedAt = d.now().UTC()
	if err := d.store.WriteTranscript(ctx, &snapshot); err != nil {
		log.Warn().Err(err).Str("tutorSession", snapshot.UserSessionID).Msg("Transcript write failed, continuing in memory")
	}
}

// Close tears the conversation down. Results still in flight are discarded when they arrive.
func (d *TutorDialogue) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch++
	d.phase = TutorClosed
	d.busy = false
}

func (d *TutorDialogue) View() TutorView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return TutorView{
		SessionID:  d.transcript.UserSessionID,
		Phase:      d.phase,
		Messages:   append([]model.Turn(nil), d.transcript.Messages...),
		RetryCount: d.transcript.RetryCount,
		MaxRetries: d.maxRetries,
		Concluded:  d.transcript.Concluded,
		Busy:       d.busy,
	}
}

func (d *TutorDialogue) stale(epoch uint64) bool {
	return d.epoch != epoch || d.phase == TutorClosed
}

func (d *TutorDialogue) restoreLocked(stored *model.TutorTranscript) {
	t := &d.transcript
	t.Messages = append([]model.Turn(nil), stored.Messages...)
	t.RetryCount = stored.RetryCount
	t.Concluded = stored.Concluded
	if stored.ContextualAnswer != "" {
		t.ContextualAnswer = stored.ContextualAnswer
	}
	if stored.StudentAnswer != "" {
		t.StudentAnswer = stored.StudentAnswer
	}
	d.busy = false
	if t.Concluded {
		d.phase = TutorConcluded
		return
	}
	d.phase = TutorAwaitingUser
	d.concluding = d.hasTurnLocked(model.TurnActualAnswer)
}

func (d *TutorDialogue) appendLocked(role model.Role, content string, kind model.TurnKind) {
	d.transcript.Messages = append(d.transcript.Messages, model.Turn{Role: role, Content: content, Kind: kind})
}

func (d *TutorDialogue) hasTurnLocked(kind model.TurnKind) bool {
	return lo.ContainsBy(d.transcript.Messages, func(t model.Turn) bool { return t.Kind == kind })
}

func (d *TutorDialogue) promptLocked() model.TutorPrompt {
	t := d.transcript
	return model.TutorPrompt{
		UserID:           t.UserID,
		QuizID:           t.QuizID,
		SubjectID:        t.SubjectID,
		TopicID:          t.TopicID,
		QuestionNumber:   t.QuestionNumber,
		QuestionText:     t.OriginalQuestion,
		OptionsText:      t.OptionsText,
		StudentAnswer:    t.StudentAnswer,
		CorrectAnswer:    t.CorrectAnswer,
		ContextualAnswer: t.ContextualAnswer,
		History:          lo.Filter(t.Messages, func(m model.Turn, _ int) bool { return m.Kind != model.TurnError }),
	}
}

func (d *TutorDialogue) snapshotLocked() model.TutorTranscript {
	s := d.transcript
	s.Messages = append([]model.Turn(nil), d.transcript.Messages...)
	return s
}
