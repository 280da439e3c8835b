package model

import (
	"strconv"

	"github.com/samber/lo"
)

// AnswerRecord is what the student gave for one question. For mcq Selected holds the option index,
// for short answers the free text. IsCorrect stays false until the answer is submitted.
type AnswerRecord struct {
	Selected  string `json:"selected"`
	IsCorrect bool   `json:"is_correct"`
}

// AnswerMap is keyed by question number rendered as a string ("1", "2", ...).
type AnswerMap map[string]AnswerRecord

func AnswerKey(questionNumber int) string {
	return strconv.Itoa(questionNumber)
}

// Merge overlays session on progress. Session entries win; entries only present in progress are kept.
// Neither input is modified.
func Merge(progress, session AnswerMap) AnswerMap {
	merged := make(AnswerMap, len(progress)+len(session))
	for k, v := range progress {
		merged[k] = v
	}
	for k, v := range session {
		merged[k] = v
	}
	return merged
}

func (m AnswerMap) Get(questionNumber int) (AnswerRecord, bool) {
	rec, ok := m[AnswerKey(questionNumber)]
	return rec, ok
}

func (m AnswerMap) Has(questionNumber int) bool {
	_, ok := m[AnswerKey(questionNumber)]
	return ok
}

// Score counts correct entries.
func (m AnswerMap) Score() int {
	return lo.CountBy(lo.Values(map[string]AnswerRecord(m)), func(r AnswerRecord) bool { return r.IsCorrect })
}

func (m AnswerMap) Clone() AnswerMap {
	if m == nil {
		return AnswerMap{}
	}
	return lo.Assign(m)
}

// Counters derives the progress counters of a merged answer set.
type Counters struct {
	AnsweredQuestions int  `json:"answered_questions"`
	Score             int  `json:"score"`
	Completed         bool `json:"completed"`
}

func CountersFor(merged AnswerMap, totalQuestions int) Counters {
	answered := len(merged)
	return Counters{
		AnsweredQuestions: answered,
		Score:             merged.Score(),
		Completed:         totalQuestions > 0 && answered == totalQuestions,
	}
}
