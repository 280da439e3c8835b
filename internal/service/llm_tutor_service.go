package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

const tutorSystemPrompt = `You are a patient Socratic tutor for school students.
Never give the final answer unless you are explicitly asked to reveal it.
Keep every reply short, friendly and focused on one idea.`

type evaluationVerdict struct {
	IsCorrect bool   `json:"is_correct" jsonschema:"description=true when the student's answer means the same as the correct answer"`
	Reason    string `json:"reason" jsonschema:"description=one sentence explaining the decision"`
}

// LLMTutorService serves the tutoring contract in-process on top of a Generator, optionally
// grounding contextual answers on retrieved course material.
type LLMTutorService struct {
	gen       Generator
	retriever Retriever
	schema    string
}

// NewLLMTutorService returns nil when no in-process generator is configured.
func NewLLMTutorService(gen Generator, retriever Retriever) *LLMTutorService {
	if gen == nil {
		return nil
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema, err := json.Marshal(reflector.Reflect(&evaluationVerdict{}))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to render evaluation schema")
	}
	return &LLMTutorService{gen: gen, retriever: retriever, schema: string(schema)}
}

func (s *LLMTutorService) EvaluateAnswer(ctx context.Context, req model.EvaluationRequest) (bool, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", req.QuestionText)
	fmt.Fprintf(&b, "Correct answer: %s\n", req.CorrectAnswer)
	if req.ContextualAnswer != "" && req.ContextualAnswer != req.CorrectAnswer {
		fmt.Fprintf(&b, "Reference explanation: %s\n", req.ContextualAnswer)
	}
	fmt.Fprintf(&b, "Student answer: %s\n\n", req.UserAnswer)
	b.WriteString("Decide whether the student's answer is correct. Accept different wording and spelling slips that keep the meaning.\n")
	fmt.Fprintf(&b, "Reply with a single JSON object matching this schema and nothing else:\n%s", s.schema)

	raw, err := s.gen.Generate(ctx, "You grade student answers strictly but fairly.", b.String())
	if err != nil {
		return false, err
	}
	verdict, err := parseVerdict(raw)
	if err != nil {
		return false, err
	}
	return verdict.IsCorrect, nil
}

func parseVerdict(raw string) (evaluationVerdict, error) {
	var v evaluationVerdict
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return v, fmt.Errorf("evaluation reply is not JSON: %q", raw)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return v, fmt.Errorf("decode evaluation reply: %w", err)
	}
	return v, nil
}

func (s *LLMTutorService) ContextualAnswer(ctx context.Context, p model.TutorPrompt) (string, error) {
	var material []string
	if s.retriever != nil {
		chunks, err := s.retriever.Retrieve(ctx, p.QuestionText, p.SubjectID, p.TopicID)
		if err != nil {
			log.Warn().Err(err).Int("quizID", p.QuizID).Msg("ContextualAnswer: retrieval failed, answering without course material")
		}
		material = chunks
	}

	var b strings.Builder
	writeQuestionBlock(&b, p)
	if len(material) > 0 {
		b.WriteString("\nCourse material:\n")
		b.WriteString(strings.Join(material, "\n---\n"))
		b.WriteString("\n")
	}
	b.WriteString("\nWrite a clear explanation of why the correct answer is right and where the student's answer goes wrong. This text is reference material for the tutor and is not shown to the student directly.")
	return s.gen.Generate(ctx, tutorSystemPrompt, b.String())
}

func (s *LLMTutorService) InitialQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	var b strings.Builder
	writeQuestionBlock(&b, p)
	fmt.Fprintf(&b, "\nReference explanation:\n%s\n", p.ContextualAnswer)
	b.WriteString("\nAsk the student one guiding question that starts them reasoning toward the correct answer.")
	return s.gen.Generate(ctx, tutorSystemPrompt, b.String())
}

func (s *LLMTutorService) Feedback(ctx context.Context, p model.TutorPrompt) (string, error) {
	var b strings.Builder
	writeQuestionBlock(&b, p)
	writeHistory(&b, p.History)
	b.WriteString("\nGive brief, encouraging feedback on the student's latest reply. Point out what is right and what is still missing, without revealing the answer.")
	return s.gen.Generate(ctx, tutorSystemPrompt, b.String())
}

func (s *LLMTutorService) FollowUpQuestion(ctx context.Context, p model.TutorPrompt) (string, error) {
	var b strings.Builder
	writeQuestionBlock(&b, p)
	writeHistory(&b, p.History)
	b.WriteString("\nAsk the next guiding question. Build on the feedback just given and do not repeat earlier questions.")
	return s.gen.Generate(ctx, tutorSystemPrompt, b.String())
}

func (s *LLMTutorService) Summary(ctx context.Context, p model.TutorPrompt) (string, error) {
	var b strings.Builder
	writeQuestionBlock(&b, p)
	writeHistory(&b, p.History)
	b.WriteString("\nSummarise this tutoring conversation for the student in three or four sentences.")
	return s.gen.Generate(ctx, tutorSystemPrompt, b.String())
}

func (s *LLMTutorService) KnowledgeGap(ctx context.Context, p model.TutorPrompt) (string, error) {
	var b strings.Builder
	writeQuestionBlock(&b, p)
	writeHistory(&b, p.History)
	b.WriteString("\nName the concept the student misunderstood and suggest what to review. Answer in two sentences.")
	return s.gen.Generate(ctx, tutorSystemPrompt, b.String())
}

func writeQuestionBlock(b *strings.Builder, p model.TutorPrompt) {
	fmt.Fprintf(b, "Question: %s\n", p.QuestionText)
	if p.OptionsText != "" {
		fmt.Fprintf(b, "Options:\n%s\n", p.OptionsText)
	}
	fmt.Fprintf(b, "Student's original answer: %s\n", p.StudentAnswer)
	fmt.Fprintf(b, "Correct answer: %s\n", p.CorrectAnswer)
}

func writeHistory(b *strings.Builder, history []model.Turn) {
	if len(history) == 0 {
		return
	}
	b.WriteString("\nConversation so far:\n")
	lines := lo.Map(history, func(t model.Turn, _ int) string {
		speaker := "Tutor"
		if t.Role == model.RoleUser {
			speaker = "Student"
		}
		return speaker + ": " + t.Content
	})
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
}
