package model

import "time"

// AttemptStart is the body returned by the start-attempt endpoint.
type AttemptStart struct {
	AttemptNumber int `json:"attempt_number"`
}

// SubmissionRecord is the immutable snapshot of a finished attempt.
type SubmissionRecord struct {
	ID             int       `json:"id,omitempty"`
	UserID         int       `json:"user_id"`
	QuizID         int       `json:"quiz_id"`
	SubjectID      int       `json:"subject_id"`
	TopicID        int       `json:"topic_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeSpent      int       `json:"time_spent"`
	Answers        AnswerMap `json:"answers"`
	AttemptNumber  int       `json:"attempt_number"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
