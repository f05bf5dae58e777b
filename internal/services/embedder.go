package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cosmosits/questionbank-backend/internal/clients/openai"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

type EmbeddingInput struct {
	Question           string
	HasDescription     bool
	DescriptionContent *string
}

type EmbeddingResult struct {
	Values    []float32
	Dimension int
	Model     string
}

// EmbeddingService turns one question's text into a fixed-dimension vector.
// Stateless; safe to retry.
type EmbeddingService interface {
	EmbedQuestion(ctx context.Context, in EmbeddingInput) (*EmbeddingResult, error)
}

type embeddingService struct {
	log *logger.Logger
	ai  openai.Client
}

func NewEmbeddingService(log *logger.Logger, ai openai.Client) (EmbeddingService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &embeddingService{
		log: log.With("service", "EmbeddingService"),
		ai:  ai,
	}, nil
}

func (s *embeddingService) EmbedQuestion(ctx context.Context, in EmbeddingInput) (*EmbeddingResult, error) {
	text := strings.TrimSpace(in.Question)
	if text == "" {
		return nil, fmt.Errorf("question text required")
	}
	if in.HasDescription && in.DescriptionContent != nil {
		if desc := strings.TrimSpace(*in.DescriptionContent); desc != "" {
			text = text + "\n\n" + desc
		}
	}

	vecs, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed question: empty embedding returned")
	}
	return &EmbeddingResult{
		Values:    vecs[0],
		Dimension: len(vecs[0]),
		Model:     s.ai.EmbedModel(),
	}, nil
}
