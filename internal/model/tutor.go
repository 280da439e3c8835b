package model

// EvaluationRequest asks whether a free-text answer is correct.
type EvaluationRequest struct {
	QuestionText     string `json:"question_text"`
	ContextualAnswer string `json:"contextual_answer"`
	CorrectAnswer    string `json:"correct_answer"`
	UserAnswer       string `json:"user_answer"`
	Model            string `json:"model"`
}

// TutorPrompt is the shared input of the Socratic tutoring calls. Each call reads the fields it needs.
type TutorPrompt struct {
	UserID           int
	QuizID           int
	SubjectID        int
	TopicID          int
	QuestionNumber   int
	QuestionText     string
	OptionsText      string
	StudentAnswer    string
	CorrectAnswer    string
	ContextualAnswer string
	History          []Turn
}
