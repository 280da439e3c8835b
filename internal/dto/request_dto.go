package dto

// OpenSessionRequest starts (or restarts) a quiz session for the caller.
type OpenSessionRequest struct {
	QuizID    int `json:"quiz_id" binding:"required,min=1"`
	SubjectID int `json:"subject_id" binding:"required,min=1"`
	TopicID   int `json:"topic_id" binding:"required,min=1"`
}

type SelectOptionRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

type TextAnswerRequest struct {
	Text string `json:"text"`
}

type NavigateRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next previous"`
}

type TutorMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
