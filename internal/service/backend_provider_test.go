package service

import (
	"testing"
	"time"

	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/client"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

func providerConfig(provider, store string) *config.Config {
	return &config.Config{
		Backend: config.Backend{BaseURL: "http://localhost:8000/api/v1", Timeout: time.Second},
		Tutor:   config.Tutor{Provider: provider, TranscriptStore: store, MaxRetries: 5, EvaluationModel: "gpt-4o-mini"},
	}
}

func TestBackendProviderSelection(t *testing.T) {
	llm := NewLLMTutorService(&scriptedGenerator{reply: "ok"}, nil)
	store := newFakeStore()
	sc := model.SessionContext{UserID: 7, AuthToken: "tok"}

	t.Run("remote", func(t *testing.T) {
		cfg := providerConfig("remote", "remote")
		upstream, err := client.NewClient(cfg)
		if err != nil {
			t.Fatalf("client: %v", err)
		}
		b := NewBackendProvider(cfg, upstream, llm, nil).ForSession(sc)
		if _, ok := b.Tutor.(*client.Client); !ok {
			t.Fatalf("expected upstream tutor, got %T", b.Tutor)
		}
		if _, ok := b.Transcripts.(*client.Client); !ok {
			t.Fatalf("expected upstream store, got %T", b.Transcripts)
		}
	})

	t.Run("in-process", func(t *testing.T) {
		cfg := providerConfig("gemini", "database")
		upstream, err := client.NewClient(cfg)
		if err != nil {
			t.Fatalf("client: %v", err)
		}
		b := NewBackendProvider(cfg, upstream, llm, store).ForSession(sc)
		if b.Tutor != llm {
			t.Fatalf("expected in-process tutor, got %T", b.Tutor)
		}
		if b.Transcripts != store {
			t.Fatalf("expected database store, got %T", b.Transcripts)
		}
		if _, ok := b.Quiz.(*client.Client); !ok {
			t.Fatalf("quiz backend is always upstream, got %T", b.Quiz)
		}
	})
}
