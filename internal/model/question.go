package model

import (
	"sort"
	"strconv"
)

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeShortAnswer QuestionType = "sa"
	QuestionTypeFillBlank   QuestionType = "fib"
	QuestionTypeTrueFalse   QuestionType = "tf"
	QuestionTypeMatch       QuestionType = "match"
)

type Option struct {
	OptionIndex int    `json:"option_index"`
	OptionText  string `json:"option_text"`
	IsCorrect   bool   `json:"is_correct"`
}

// Question is one item of a quiz as served by the questions endpoint. It is read-only for a session.
type Question struct {
	ID              int          `json:"id,omitempty"`
	QuizID          int          `json:"quiz_id"`
	QuestionNumber  int          `json:"question_number"`
	QuestionText    string       `json:"question_text"`
	QuestionType    QuestionType `json:"question_type"`
	IsMathsQuestion bool         `json:"is_maths_question"`
	Options         []Option     `json:"options"`
	CorrectAnswer   string       `json:"correct_answer,omitempty"`
}

// IsShortAnswer reports whether the question is graded from free text. Questions without options are
// short-answer whatever their declared type.
func (q *Question) IsShortAnswer() bool {
	return q.QuestionType == QuestionTypeShortAnswer || len(q.Options) == 0
}

// CorrectOption returns the option flagged correct, if any.
func (q *Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

// OptionBySelection resolves a stored selection ("2") to its option.
func (q *Question) OptionBySelection(selected string) (Option, bool) {
	idx, err := strconv.Atoi(selected)
	if err != nil {
		return Option{}, false
	}
	for _, o := range q.Options {
		if o.OptionIndex == idx {
			return o, true
		}
	}
	return Option{}, false
}

// ReferenceAnswer is the text the tutor treats as the correct answer.
func (q *Question) ReferenceAnswer() string {
	if q.IsShortAnswer() {
		return q.CorrectAnswer
	}
	if o, ok := q.CorrectOption(); ok {
		return o.OptionText
	}
	return q.CorrectAnswer
}

// SortQuestions orders questions by their 1-based position.
func SortQuestions(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].QuestionNumber < qs[j].QuestionNumber })
}
