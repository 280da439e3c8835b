package service

import "github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"

type SessionPhase string

const (
	PhaseLoading   SessionPhase = "loading"
	PhaseReady     SessionPhase = "ready"
	PhaseChecked   SessionPhase = "checked"
	PhaseCompleted SessionPhase = "completed"
	PhaseError     SessionPhase = "error"
)

type Direction int

const (
	DirectionPrevious Direction = -1
	DirectionNext     Direction = 1
)

// OptionView hides correctness until the question is checked.
type OptionView struct {
	OptionIndex int
	OptionText  string
	IsCorrect   *bool
}

type QuestionView struct {
	QuestionNumber  int
	QuestionText    string
	QuestionType    model.QuestionType
	IsMathsQuestion bool
	IsShortAnswer   bool
	Options         []OptionView
	CorrectAnswer   string
}

// SessionView is a read-only copy of a session's state.
type SessionView struct {
	Phase             SessionPhase
	Error             string
	QuizID            int
	SubjectID         int
	TopicID           int
	AttemptNumber     int
	CurrentQuestion   int
	TotalQuestions    int
	Question          *QuestionView
	Selected          string
	HasSelection      bool
	Checked           bool
	IsCorrect         *bool
	AnsweredQuestions int
	Score             int
	Completed         bool
	TimeSpent         int
	Pending           bool
	CheckedQuestions  []int
	Tutor             *TutorView
	Submission        *model.SubmissionRecord
}
