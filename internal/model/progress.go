package model

import "fmt"

// ProgressKey identifies one progress row: a user's run through one quiz of a subject topic.
type ProgressKey struct {
	QuizID    int
	SubjectID int
	TopicID   int
	UserID    int
}

func (k ProgressKey) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", k.UserID, k.QuizID, k.SubjectID, k.TopicID)
}

// QuizProgress is the server-authoritative progress record.
type QuizProgress struct {
	UserID            int       `json:"user_id"`
	QuizID            int       `json:"quiz_id"`
	SubjectID         int       `json:"subject_id"`
	TopicID           int       `json:"topic_id"`
	CurrentQuestion   int       `json:"current_question"`
	TotalQuestions    int       `json:"total_questions"`
	AnsweredQuestions int       `json:"answered_questions"`
	Score             int       `json:"score"`
	TimeSpent         int       `json:"time_spent"`
	Completed         bool      `json:"completed"`
	Answers           AnswerMap `json:"answers"`
	AttemptNumber     int       `json:"attempt_number"`
}

// MergedState is everything needed to write a progress row after a merge.
type MergedState struct {
	Answers         AnswerMap
	CurrentQuestion int
	TotalQuestions  int
	TimeSpent       int
	AttemptNumber   int
}

// ResumeTarget picks the question a session starts on: the first of 1..total without a stored answer,
// else the stored pointer, else 1.
func ResumeTarget(total int, progress *QuizProgress) int {
	if progress == nil {
		return 1
	}
	for n := 1; n <= total; n++ {
		if !progress.Answers.Has(n) {
			return n
		}
	}
	if progress.CurrentQuestion >= 1 {
		return progress.CurrentQuestion
	}
	return 1
}
