package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

const (
	pathQuizQuestions  = "/questions/questions/quiz-questions"
	pathProgressSingle = "/quiz-progress/quiz-progress/single"
	pathProgressUpsert = "/quiz-progress/quiz-progress/"
	pathAttemptStart   = "/quiz-attempts/quiz-attempts/start"
	pathSubmissions    = "/quiz-submissions/quiz-submissions/"
)

func progressQuery(key model.ProgressKey) map[string]string {
	return map[string]string{
		"quiz_id":    strconv.Itoa(key.QuizID),
		"subject_id": strconv.Itoa(key.SubjectID),
		"topic_id":   strconv.Itoa(key.TopicID),
		"user_id":    strconv.Itoa(key.UserID),
	}
}

func (c *Client) FetchQuestions(ctx context.Context, quizID, organizationID int) ([]model.Question, error) {
	var questions []model.Question
	query := map[string]string{
		"quiz_id":         strconv.Itoa(quizID),
		"organization_id": strconv.Itoa(organizationID),
	}
	if err := c.getJSON(ctx, pathQuizQuestions, query, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// FetchProgress returns nil without error when the backend has no progress row yet.
func (c *Client) FetchProgress(ctx context.Context, key model.ProgressKey) (*model.QuizProgress, error) {
	var progress model.QuizProgress
	if err := c.getJSON(ctx, pathProgressSingle, progressQuery(key), &progress); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if progress.Answers == nil {
		progress.Answers = model.AnswerMap{}
	}
	return &progress, nil
}

func (c *Client) UpsertProgress(ctx context.Context, key model.ProgressKey, progress *model.QuizProgress) error {
	return c.sendJSON(ctx, c.rest, http.MethodPut, pathProgressUpsert, progressQuery(key), progress, nil)
}

func (c *Client) StartAttempt(ctx context.Context, key model.ProgressKey) (int, error) {
	in := struct {
		QuizID    int `json:"quiz_id"`
		SubjectID int `json:"subject_id"`
		TopicID   int `json:"topic_id"`
	}{key.QuizID, key.SubjectID, key.TopicID}
	var out model.AttemptStart
	query := map[string]string{"user_id": strconv.Itoa(key.UserID)}
	if err := c.sendJSON(ctx, c.rest, http.MethodPost, pathAttemptStart, query, in, &out); err != nil {
		return 0, err
	}
	return out.AttemptNumber, nil
}

func (c *Client) CreateSubmission(ctx context.Context, key model.ProgressKey, submission *model.SubmissionRecord) (*model.SubmissionRecord, error) {
	var out model.SubmissionRecord
	query := map[string]string{"user_id": strconv.Itoa(key.UserID)}
	if err := c.sendJSON(ctx, c.rest, http.MethodPost, pathSubmissions, query, submission, &out); err != nil {
		return nil, err
	}
	if out.SubmittedAt.IsZero() {
		out = *submission
	}
	return &out, nil
}
