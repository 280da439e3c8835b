package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

const (
	pathEvaluate         = "/genai/answer-evaluation/answer/evaluate"
	pathContextualAnswer = "/genai/socratic/contextual-answer"
	pathInitialQuestion  = "/genai/socratic/initial"
	pathFeedback         = "/genai/feedback/generate"
	pathFollowUpQuestion = "/genai/follow-up-socratic/ask"
	pathUserSummary      = "/genai/user-summary/generate"
	pathKnowledgeGap     = "/genai/knowledge-gap/analyze"
)

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// tutorRequest is the body shared by the socratic endpoints.
type tutorRequest struct {
	UserID           int           `json:"user_id,omitempty"`
	QuizID           int           `json:"quiz_id,omitempty"`
	SubjectID        int           `json:"subject_id,omitempty"`
	TopicID          int           `json:"topic_id,omitempty"`
	QuestionText     string        `json:"question_text"`
	OptionsText      string        `json:"options_text,omitempty"`
	StudentAnswer    string        `json:"student_answer"`
	CorrectAnswer    string        `json:"correct_answer"`
	ContextualAnswer string        `json:"contextual_answer,omitempty"`
	History          []historyTurn `json:"history,omitempty"`
}

func newTutorRequest(p model.TutorPrompt) tutorRequest {
	req := tutorRequest{
		UserID:           p.UserID,
		QuizID:           p.QuizID,
		SubjectID:        p.SubjectID,
		TopicID:          p.TopicID,
		QuestionText:     p.QuestionText,
		OptionsText:      p.OptionsText,
		StudentAnswer:    p.StudentAnswer,
		CorrectAnswer:    p.CorrectAnswer,
		ContextualAnswer: p.ContextualAnswer,
	}
	for _, t := range p.History {
		req.History = append(req.History, historyTurn{Role: string(t.Role), Content: t.Content})
	}
	return req
}

// EvaluateAnswer implements the answer-evaluation contract. The configured model name is sent when the
// request leaves it empty.
func (c *Client) EvaluateAnswer(ctx context.Context, req model.EvaluationRequest) (bool, error) {
	if req.Model == "" {
		req.Model = c.evaluationModel
	}
	var out struct {
		IsCorrect bool `json:"is_correct"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathEvaluate, nil, req, &out); err != nil {
		return false, err
	}
	return out.IsCorrect, nil
}

func (c *Client) ContextualAnswer(ctx context.Context, p model.TutorPrompt) (string, error) {
	var out struct {
		AssistantResponse string `json:"assistant_response"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathContextualAnswer, nil, newTutorRequest(p), &out); err != nil {
		return "", err
	}
	return nonEmpty(pathContextualAnswer, out.AssistantResponse)
}

func (c *Client) InitialQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	var out struct {
		SubQuestion string `json:"sub_question"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathInitialQuestion, nil, newTutorRequest(p), &out); err != nil {
		return "", err
	}
	return nonEmpty(pathInitialQuestion, out.SubQuestion)
}

func (c *Client) Feedback(ctx context.Context, p model.TutorPrompt) (string, error) {
	var out struct {
		Feedback string `json:"feedback"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathFeedback, nil, newTutorRequest(p), &out); err != nil {
		return "", err
	}
	return nonEmpty(pathFeedback, out.Feedback)
}

func (c *Client) FollowUpQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	var out struct {
		SubQuestion string `json:"sub_question"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathFollowUpQuestion, nil, newTutorRequest(p), &out); err != nil {
		return "", err
	}
	return nonEmpty(pathFollowUpQuestion, out.SubQuestion)
}

func (c *Client) Summary(ctx context.Context, p model.TutorPrompt) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathUserSummary, nil, newTutorRequest(p), &out); err != nil {
		return "", err
	}
	return nonEmpty(pathUserSummary, out.Summary)
}

func (c *Client) KnowledgeGap(ctx context.Context, p model.TutorPrompt) (string, error) {
	var out struct {
		KnowledgeGap string `json:"knowledge-gap"`
	}
	if err := c.sendJSON(ctx, c.genai, http.MethodPost, pathKnowledgeGap, nil, newTutorRequest(p), &out); err != nil {
		return "", err
	}
	return nonEmpty(pathKnowledgeGap, out.KnowledgeGap)
}

func nonEmpty(path, s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%s: empty response", path)
	}
	return s, nil
}
