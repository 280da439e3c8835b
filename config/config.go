package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Backend  Backend
	Tutor    Tutor
	LLM      LLM
	Pinecone Pinecone
	Log      Log
}

type Server struct {
	Port string `validate:"required"`
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string `json:"-"`
	Name     string
}

// Backend describes the upstream REST API the sessions talk to.
type Backend struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
	// EnvelopeKey is a base64 encoded 32 byte key. Empty disables the genai payload envelope.
	EnvelopeKey string `json:"-"`
}

type Tutor struct {
	Provider         string `validate:"oneof=remote gemini openai anthropic"`
	TranscriptStore  string `validate:"oneof=remote database"`
	MaxRetries       int    `validate:"min=1"`
	EvaluationModel  string `validate:"required"`
	ConvDBName       string
	ConvCollection   string
	SessionIdleLimit time.Duration
}

type LLM struct {
	GeminiApiKey    string `json:"-"`
	GeminiModel     string
	OpenAIApiKey    string `json:"-"`
	OpenAIModel     string
	AnthropicApiKey string `json:"-"`
	AnthropicModel  string
}

type Pinecone struct {
	ApiKey    string `json:"-"`
	IndexName string
	Namespace string
	TopK      int `validate:"min=1"`
}

type Log struct {
	Level  string `validate:"oneof=trace debug info warn error"`
	Pretty bool
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:8000/api/v1")
	viper.SetDefault("BACKEND_TIMEOUT", "30s")
	viper.SetDefault("TUTOR_PROVIDER", "remote")
	viper.SetDefault("TUTOR_TRANSCRIPT_STORE", "remote")
	viper.SetDefault("TUTOR_MAX_RETRIES", 5)
	viper.SetDefault("TUTOR_EVALUATION_MODEL", "gpt-4o-mini")
	viper.SetDefault("TUTOR_CONV_DB_NAME", "tutor")
	viper.SetDefault("TUTOR_CONV_COLLECTION", "conversations")
	viper.SetDefault("TUTOR_SESSION_IDLE_LIMIT", "2h")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	viper.SetDefault("PINECONE_TOP_K", 3)
	viper.SetDefault("LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Backend.BaseURL = viper.GetString("BACKEND_BASE_URL")
	config.Backend.Timeout = viper.GetDuration("BACKEND_TIMEOUT")
	config.Backend.EnvelopeKey = viper.GetString("BACKEND_ENVELOPE_KEY")

	config.Tutor.Provider = viper.GetString("TUTOR_PROVIDER")
	config.Tutor.TranscriptStore = viper.GetString("TUTOR_TRANSCRIPT_STORE")
	config.Tutor.MaxRetries = viper.GetInt("TUTOR_MAX_RETRIES")
	config.Tutor.EvaluationModel = viper.GetString("TUTOR_EVALUATION_MODEL")
	config.Tutor.ConvDBName = viper.GetString("TUTOR_CONV_DB_NAME")
	config.Tutor.ConvCollection = viper.GetString("TUTOR_CONV_COLLECTION")
	config.Tutor.SessionIdleLimit = viper.GetDuration("TUTOR_SESSION_IDLE_LIMIT")

	config.LLM.GeminiApiKey = viper.GetString("GEMINI_API_KEY")
	config.LLM.GeminiModel = viper.GetString("GEMINI_MODEL")
	config.LLM.OpenAIApiKey = viper.GetString("OPENAI_API_KEY")
	config.LLM.OpenAIModel = viper.GetString("OPENAI_MODEL")
	config.LLM.AnthropicApiKey = viper.GetString("ANTHROPIC_API_KEY")
	config.LLM.AnthropicModel = viper.GetString("ANTHROPIC_MODEL")

	config.Pinecone.ApiKey = viper.GetString("PINECONE_API_KEY")
	config.Pinecone.IndexName = viper.GetString("PINECONE_INDEX_NAME")
	config.Pinecone.Namespace = viper.GetString("PINECONE_NAMESPACE")
	config.Pinecone.TopK = viper.GetInt("PINECONE_TOP_K")

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Pretty = viper.GetBool("LOG_PRETTY")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}

// Validate checks the assembled configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Tutor.TranscriptStore == "database" && c.Database.Host == "" {
		return fmt.Errorf("invalid configuration: TUTOR_TRANSCRIPT_STORE=database requires DATABASE_HOST")
	}
	return nil
}
