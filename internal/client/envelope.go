package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Envelope seals request bodies and opens response bodies of the genai endpoints.
type Envelope interface {
	Seal(plain []byte) ([]byte, error)
	Open(body []byte) ([]byte, error)
}

type sealedBody struct {
	EncryptedPayload string `json:"encrypted_payload"`
}

// SecretboxEnvelope encrypts with NaCl secretbox. The wire form is {"encrypted_payload": base64(nonce|box)}.
type SecretboxEnvelope struct {
	key [32]byte
}

// NewSecretboxEnvelope takes a base64 encoded 32 byte key.
func NewSecretboxEnvelope(encodedKey string) (*SecretboxEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode envelope key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("envelope key must be 32 bytes, got %d", len(raw))
	}
	e := &SecretboxEnvelope{}
	copy(e.key[:], raw)
	return e, nil
}

func (e *SecretboxEnvelope) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], plain, &nonce, &e.key)
	return json.Marshal(sealedBody{EncryptedPayload: base64.StdEncoding.EncodeToString(box)})
}

// Open accepts both sealed and plain JSON bodies. Plain bodies are returned unchanged.
func (e *SecretboxEnvelope) Open(body []byte) ([]byte, error) {
	var sealed sealedBody
	if err := json.Unmarshal(body, &sealed); err != nil || sealed.EncryptedPayload == "" {
		return body, nil
	}
	box, err := base64.StdEncoding.DecodeString(sealed.EncryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("decode sealed payload: %w", err)
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, errors.New("sealed payload too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &e.key)
	if !ok {
		return nil, errors.New("sealed payload failed authentication")
	}
	return plain, nil
}

// envelopeTransport seals outgoing bodies and opens incoming ones around another transport.
type envelopeTransport struct {
	next transport
	env  Envelope
}

func (t *envelopeTransport) do(ctx context.Context, c call) ([]byte, error) {
	if c.Body != nil {
		sealed, err := t.env.Seal(c.Body)
		if err != nil {
			return nil, fmt.Errorf("seal %s: %w", c.Path, err)
		}
		c.Body = sealed
	}
	body, err := t.next.do(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return body, nil
	}
	plain, err := t.env.Open(body)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Path, err)
	}
	return plain, nil
}
