package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func newTestClient(t *testing.T, h http.HandlerFunc, env Envelope) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newClient(resty.New().SetBaseURL(srv.URL), env, "gpt-4o-mini", "tutor", "conversations").WithToken("tok-1")
}

func TestFetchQuestionsSendsQueryAndToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathQuizQuestions {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected authorization %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		if r.URL.Query().Get("quiz_id") != "3" || r.URL.Query().Get("organization_id") != "9" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"quiz_id":3,"question_number":2,"question_text":"b","question_type":"mcq","options":[]},
			{"quiz_id":3,"question_number":1,"question_text":"a","question_type":"mcq","options":[{"option_index":0,"option_text":"x","is_correct":true}]}]`)
	}, nil)

	qs, err := c.FetchQuestions(context.Background(), 3, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 || qs[1].Options[0].OptionText != "x" {
		t.Fatalf("unexpected questions: %+v", qs)
	}
}

func TestFetchProgress(t *testing.T) {
	t.Run("not found is nil", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"not found"}`)
		}, nil)
		p, err := c.FetchProgress(context.Background(), model.ProgressKey{QuizID: 1, SubjectID: 2, TopicID: 3, UserID: 4})
		if err != nil || p != nil {
			t.Fatalf("expected nil, nil; got %+v, %v", p, err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, nil)
		_, err := c.FetchProgress(context.Background(), model.ProgressKey{QuizID: 1})
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("user_id") != "4" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			_, _ = io.WriteString(w, `{"current_question":2,"total_questions":3,"answers":{"1":{"selected":"1","is_correct":true}},"attempt_number":2}`)
		}, nil)
		p, err := c.FetchProgress(context.Background(), model.ProgressKey{QuizID: 1, SubjectID: 2, TopicID: 3, UserID: 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.AttemptNumber != 2 || !p.Answers["1"].IsCorrect {
			t.Fatalf("unexpected progress %+v", p)
		}
	})
}

func TestUpsertProgressAndStartAttempt(t *testing.T) {
	var gotProgress model.QuizProgress
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == pathProgressUpsert:
			if err := json.NewDecoder(r.Body).Decode(&gotProgress); err != nil {
				t.Errorf("decode: %v", err)
			}
			_, _ = io.WriteString(w, `{"ok":true}`)
		case r.Method == http.MethodPost && r.URL.Path == pathAttemptStart:
			_, _ = io.WriteString(w, `{"attempt_number":4}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}, nil)

	key := model.ProgressKey{QuizID: 1, SubjectID: 2, TopicID: 3, UserID: 4}
	err := c.UpsertProgress(context.Background(), key, &model.QuizProgress{AnsweredQuestions: 1, Answers: model.AnswerMap{"1": {Selected: "0"}}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if gotProgress.AnsweredQuestions != 1 || gotProgress.Answers["1"].Selected != "0" {
		t.Fatalf("unexpected upsert body %+v", gotProgress)
	}

	n, err := c.StartAttempt(context.Background(), key)
	if err != nil || n != 4 {
		t.Fatalf("expected attempt 4, got %d, %v", n, err)
	}
}

func TestGenAIEnvelope(t *testing.T) {
	env, err := NewSecretboxEnvelope(testKey)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	t.Run("sealed both ways", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			if strings.Contains(string(raw), "Paris") {
				t.Errorf("request body travelled in clear: %s", raw)
			}
			plain, err := env.Open(raw)
			if err != nil {
				t.Errorf("open request: %v", err)
			}
			var req model.EvaluationRequest
			_ = json.Unmarshal(plain, &req)
			if req.UserAnswer != "Paris" || req.Model != "gpt-4o-mini" {
				t.Errorf("unexpected request %+v", req)
			}
			sealed, _ := env.Seal([]byte(`{"is_correct":true}`))
			_, _ = w.Write(sealed)
		}, env)

		ok, err := c.EvaluateAnswer(context.Background(), model.EvaluationRequest{QuestionText: "Capital of France?", UserAnswer: "Paris"})
		if err != nil || !ok {
			t.Fatalf("expected correct, got %v, %v", ok, err)
		}
	})

	t.Run("plain response tolerated", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"sub_question":"What is 2+2?"}`)
		}, env)
		q, err := c.InitialQuestion(context.Background(), model.TutorPrompt{QuestionText: "q"})
		if err != nil || q != "What is 2+2?" {
			t.Fatalf("unexpected %q, %v", q, err)
		}
	})
}

func TestSecretboxEnvelopeRejectsBadKey(t *testing.T) {
	if _, err := NewSecretboxEnvelope(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatalf("expected key length error")
	}
}

func TestKnowledgeGapEmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"knowledge-gap":""}`)
	}, nil)
	if _, err := c.KnowledgeGap(context.Background(), model.TutorPrompt{}); err == nil {
		t.Fatalf("expected error for empty response")
	}
}

func TestTranscriptReadWrite(t *testing.T) {
	var written map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathConvRead:
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["collection_name"] != "conversations" {
				t.Errorf("unexpected read body %v", in)
			}
			if in["user_session_id"] == "1:1:1:1" {
				_, _ = io.WriteString(w, `{}`)
				return
			}
			_, _ = io.WriteString(w, `{"user_session_id":"1:1:2:1","messages":[{"role":"assistant","content":"hi","type":"question"}],"retry_count":2}`)
		case pathConvWrite:
			_ = json.NewDecoder(r.Body).Decode(&written)
			_, _ = io.WriteString(w, `{"ok":true}`)
		}
	}, nil)

	tr, err := c.ReadTranscript(context.Background(), "1:1:1:1")
	if err != nil || tr != nil {
		t.Fatalf("expected empty transcript, got %+v, %v", tr, err)
	}

	tr, err = c.ReadTranscript(context.Background(), "1:1:2:1")
	if err != nil || tr == nil || tr.RetryCount != 2 || tr.Messages[0].Kind != model.TurnQuestion {
		t.Fatalf("unexpected transcript %+v, %v", tr, err)
	}

	other, err := c.ReadTranscript(context.Background(), "1:1:3:1")
	if err != nil || other != nil {
		t.Fatalf("transcript of another session must be ignored, got %+v, %v", other, err)
	}

	if err := c.WriteTranscript(context.Background(), tr); err != nil {
		t.Fatalf("write: %v", err)
	}
	if written["user_session_id"] != "1:1:2:1" || written["db_name"] != "tutor" {
		t.Fatalf("unexpected write body %v", written)
	}
}
