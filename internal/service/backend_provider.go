package service

import (
	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/client"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/repository"
)

type backendProvider struct {
	upstream    *client.Client
	tutor       TutorBackend
	transcripts TranscriptStore
}

// NewBackendProvider binds the upstream client to each session's token. The in-process tutor and the
// database transcript store replace their upstream counterparts when configured.
func NewBackendProvider(cfg *config.Config, upstream *client.Client, llm *LLMTutorService, transcripts repository.TranscriptRepository) BackendProvider {
	p := &backendProvider{upstream: upstream}
	if cfg.Tutor.Provider != "remote" && llm != nil {
		p.tutor = llm
		log.Info().Str("provider", cfg.Tutor.Provider).Msg("Tutor AI served in-process")
	}
	if cfg.Tutor.TranscriptStore == "database" && transcripts != nil {
		p.transcripts = transcripts
		log.Info().Msg("Tutor transcripts stored in the local database")
	}
	return p
}

func (p *backendProvider) ForSession(sc model.SessionContext) Backends {
	c := p.upstream.WithToken(sc.AuthToken)
	b := Backends{Quiz: c, Tutor: c, Transcripts: c}
	if p.tutor != nil {
		b.Tutor = p.tutor
	}
	if p.transcripts != nil {
		b.Transcripts = p.transcripts
	}
	return b
}
