package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type OptionResponse struct {
	OptionIndex int    `json:"option_index"`
	OptionText  string `json:"option_text"`
	IsCorrect   *bool  `json:"is_correct,omitempty"`
}

type QuestionResponse struct {
	QuestionNumber  int              `json:"question_number"`
	QuestionText    string           `json:"question_text"`
	QuestionType    string           `json:"question_type"`
	IsMathsQuestion bool             `json:"is_maths_question"`
	IsShortAnswer   bool             `json:"is_short_answer"`
	Options         []OptionResponse `json:"options"`
	CorrectAnswer   string           `json:"correct_answer,omitempty"`
}

type TurnResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Kind    string `json:"type,omitempty"`
}

type TutorResponse struct {
	SessionID  string         `json:"session_id"`
	Phase      string         `json:"phase"`
	Messages   []TurnResponse `json:"messages"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
	Concluded  bool           `json:"concluded"`
	Busy       bool           `json:"busy"`
}

type SubmissionResponse struct {
	ID             int                       `json:"id,omitempty"`
	QuizID         int                       `json:"quiz_id"`
	Score          int                       `json:"score"`
	TotalQuestions int                       `json:"total_questions"`
	TimeSpent      int                       `json:"time_spent"`
	AttemptNumber  int                       `json:"attempt_number"`
	Answers        map[string]AnswerResponse `json:"answers"`
	SubmittedAt    time.Time                 `json:"submitted_at"`
}

type AnswerResponse struct {
	Selected  string `json:"selected"`
	IsCorrect bool   `json:"is_correct"`
}

// SessionResponse is the full state the quiz screen renders from.
type SessionResponse struct {
	SessionID         string              `json:"session_id"`
	Phase             string              `json:"phase"`
	Error             string              `json:"error,omitempty"`
	QuizID            int                 `json:"quiz_id"`
	SubjectID         int                 `json:"subject_id"`
	TopicID           int                 `json:"topic_id"`
	AttemptNumber     int                 `json:"attempt_number"`
	CurrentQuestion   int                 `json:"current_question"`
	TotalQuestions    int                 `json:"total_questions"`
	Question          *QuestionResponse   `json:"question,omitempty"`
	Selected          string              `json:"selected"`
	HasSelection      bool                `json:"has_selection"`
	Checked           bool                `json:"checked"`
	IsCorrect         *bool               `json:"is_correct,omitempty"`
	AnsweredQuestions int                 `json:"answered_questions"`
	Score             int                 `json:"score"`
	Completed         bool                `json:"completed"`
	TimeSpent         int                 `json:"time_spent"`
	Pending           bool                `json:"pending"`
	CheckedQuestions  []int               `json:"checked_questions"`
	Tutor             *TutorResponse      `json:"tutor,omitempty" copier:"-"`
	Submission        *SubmissionResponse `json:"submission,omitempty" copier:"-"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
