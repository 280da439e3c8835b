package client

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

const (
	pathConvRead  = "/conv-store/conv-store/read"
	pathConvWrite = "/conv-store/conv-store/write"
)

// ReadTranscript returns nil when the store holds nothing for sessionID.
func (c *Client) ReadTranscript(ctx context.Context, sessionID string) (*model.TutorTranscript, error) {
	in := struct {
		UserSessionID  string `json:"user_session_id"`
		DBName         string `json:"db_name"`
		CollectionName string `json:"collection_name"`
	}{sessionID, c.convDBName, c.convCollection}

	var out *model.TutorTranscript
	if err := c.sendJSON(ctx, c.rest, http.MethodPost, pathConvRead, nil, in, &out); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if out == nil || (out.UserSessionID == "" && len(out.Messages) == 0) {
		return nil, nil
	}
	if out.UserSessionID == "" {
		out.UserSessionID = sessionID
	}
	if out.UserSessionID != sessionID {
		log.Warn().Str("requested", sessionID).Str("returned", out.UserSessionID).Msg("Conversation store returned another session's transcript, ignoring it")
		return nil, nil
	}
	return out, nil
}

func (c *Client) WriteTranscript(ctx context.Context, transcript *model.TutorTranscript) error {
	in := struct {
		*model.TutorTranscript
		DBName         string `json:"db_name"`
		CollectionName string `json:"collection_name"`
	}{transcript, c.convDBName, c.convCollection}
	return c.sendJSON(ctx, c.rest, http.MethodPost, pathConvWrite, nil, in, nil)
}
