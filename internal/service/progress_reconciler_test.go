package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

var testKey = model.ProgressKey{QuizID: 10, SubjectID: 2, TopicID: 3, UserID: 7}

func TestReconcilerFetchQuestionsSortsAndWraps(t *testing.T) {
	qs := seedQuestions()
	backend := &fakeQuizBackend{questions: []model.Question{qs[2], qs[0], qs[1]}}
	r := NewProgressReconciler(backend, nil)

	got, err := r.FetchQuestions(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, q := range got {
		if q.QuestionNumber != i+1 {
			t.Fatalf("questions not sorted: %+v", got)
		}
	}

	backend.questionErr = errBoom
	_, err = r.FetchQuestions(context.Background(), 10, 1)
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, errBoom) {
		t.Fatalf("expected FetchError wrapping cause, got %v", err)
	}
}

func TestReconcilerFetchQuestionsRejectsNumberingGaps(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
	}{
		{"gap", []int{1, 3}},
		{"duplicate", []int{1, 1, 2}},
		{"zero based", []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qs []model.Question
			for _, n := range tt.numbers {
				qs = append(qs, model.Question{QuizID: 10, QuestionNumber: n, QuestionText: "q"})
			}
			r := NewProgressReconciler(&fakeQuizBackend{questions: qs}, nil)
			_, err := r.FetchQuestions(context.Background(), 10, 1)
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError for numbers %v, got %v", tt.numbers, err)
			}
		})
	}
}

func TestReconcilerFetchAllGuardsEachResult(t *testing.T) {
	backend := &fakeQuizBackend{questions: seedQuestions(), progressErr: errBoom}
	r := NewProgressReconciler(backend, nil)

	res := r.FetchAll(context.Background(), testKey, 1)
	if res.QuestionErr != nil || len(res.Questions) != 3 {
		t.Fatalf("question fetch should succeed independently: %+v", res)
	}
	if res.ProgressErr == nil || res.Progress != nil {
		t.Fatalf("expected progress error, got %+v", res)
	}
}

func TestReconcilerFetchProgressMissingIsNil(t *testing.T) {
	r := NewProgressReconciler(&fakeQuizBackend{}, nil)
	p, err := r.FetchProgress(context.Background(), testKey)
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", p, err)
	}
}

func TestReconcilerPersistAnswerComputesCounters(t *testing.T) {
	backend := &fakeQuizBackend{}
	r := NewProgressReconciler(backend, nil)
	merged := model.AnswerMap{
		"1": {Selected: "1", IsCorrect: true},
		"2": {Selected: "0", IsCorrect: false},
		"3": {Selected: "Paris", IsCorrect: true},
	}

	row, err := r.PersistAnswer(context.Background(), testKey, model.MergedState{
		Answers: merged, CurrentQuestion: 3, TotalQuestions: 3, TimeSpent: 42, AttemptNumber: 2,
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if row.AnsweredQuestions != 3 || row.Score != 2 || !row.Completed || row.AttemptNumber != 2 || row.TimeSpent != 42 {
		t.Fatalf("unexpected row %+v", row)
	}
	if backend.upsertCount() != 1 || backend.upserts[0].UserID != 7 {
		t.Fatalf("unexpected upserts %+v", backend.upserts)
	}

	merged["4"] = model.AnswerRecord{}
	if len(backend.upserts[0].Answers) != 3 {
		t.Fatalf("persisted row shares the caller's map")
	}

	backend.upsertErr = errBoom
	_, err = r.PersistAnswer(context.Background(), testKey, model.MergedState{Answers: merged, TotalQuestions: 3})
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistError, got %v", err)
	}
}

func TestReconcilerPersistFinal(t *testing.T) {
	backend := &fakeQuizBackend{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewProgressReconciler(backend, func() time.Time { return at })

	rec, err := r.PersistFinal(context.Background(), testKey, model.MergedState{
		Answers:        model.AnswerMap{"1": {Selected: "1", IsCorrect: true}},
		TotalQuestions: 2, TimeSpent: 90, AttemptNumber: 3,
	})
	if err != nil {
		t.Fatalf("persist final: %v", err)
	}
	if !backend.upserts[0].Completed {
		t.Fatalf("final upsert must be completed")
	}
	if rec.Score != 1 || rec.TimeSpent != 90 || rec.AttemptNumber != 3 || !rec.SubmittedAt.Equal(at) || rec.ID != 1 {
		t.Fatalf("unexpected submission %+v", rec)
	}
}
