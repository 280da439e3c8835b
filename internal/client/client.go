package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type call struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
	Token  string
}

// transport moves raw JSON bodies. Decorators wrap it to change what goes over the wire.
type transport interface {
	do(ctx context.Context, c call) ([]byte, error)
}

type restyTransport struct {
	http *resty.Client
}

func (t *restyTransport) do(ctx context.Context, c call) ([]byte, error) {
	req := t.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("X-Request-ID", uuid.NewString())
	if c.Token != "" {
		req.SetAuthToken(c.Token)
	}
	if c.Query != nil {
		req.SetQueryParams(c.Query)
	}
	if c.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(c.Body)
	}

	resp, err := req.Execute(c.Method, c.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.Method, c.Path, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Method: c.Method, Path: c.Path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

// Client talks to the upstream REST backend. A Client is bound to one bearer token; use WithToken
// to get a copy for another session.
type Client struct {
	rest            transport
	genai           transport
	token           string
	evaluationModel string
	convDBName      string
	convCollection  string
}

// NewClient builds the shared upstream client from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	var env Envelope
	if cfg.Backend.EnvelopeKey != "" {
		sb, err := NewSecretboxEnvelope(cfg.Backend.EnvelopeKey)
		if err != nil {
			return nil, err
		}
		env = sb
	} else {
		log.Warn().Msg("BACKEND_ENVELOPE_KEY is not set. genai payloads travel as plain JSON.")
	}

	rc := resty.New().
		SetBaseURL(cfg.Backend.BaseURL).
		SetTimeout(cfg.Backend.Timeout)

	return newClient(rc, env, cfg.Tutor.EvaluationModel, cfg.Tutor.ConvDBName, cfg.Tutor.ConvCollection), nil
}

func newClient(rc *resty.Client, env Envelope, evaluationModel, convDB, convCollection string) *Client {
	rest := &restyTransport{http: rc}
	var genai transport = rest
	if env != nil {
		genai = &envelopeTransport{next: rest, env: env}
	}
	return &Client{
		rest:            rest,
		genai:           genai,
		evaluationModel: evaluationModel,
		convDBName:      convDB,
		convCollection:  convCollection,
	}
}

// WithToken returns a copy of c that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	body, err := c.rest.do(ctx, call{Method: http.MethodGet, Path: path, Query: query, Token: c.token})
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

func (c *Client) sendJSON(ctx context.Context, t transport, method, path string, query map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	body, err := t.do(ctx, call{Method: method, Path: path, Query: query, Body: payload, Token: c.token})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(path, body, out)
}

func decode(path string, body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
