package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/cosmosits/questionbank-backend/internal/data/repos/testutil"
)

type fakeOpenAI struct {
	inputs [][]string
	vecs   [][]float32
	err    error
}

func (f *fakeOpenAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.inputs = append(f.inputs, inputs)
	if f.err != nil {
		return nil, f.err
	}
	return f.vecs, nil
}

func (f *fakeOpenAI) EmbedModel() string { return "text-embedding-3-small" }

func TestEmbedQuestionJoinsDescription(t *testing.T) {
	desc := "Consider relation R."
	ai := &fakeOpenAI{vecs: [][]float32{{0.1, 0.2, 0.3}}}
	svc, err := NewEmbeddingService(testutil.Logger(t), ai)
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}

	res, err := svc.EmbedQuestion(context.Background(), EmbeddingInput{
		Question:           "What is 2NF?",
		HasDescription:     true,
		DescriptionContent: &desc,
	})
	if err != nil {
		t.Fatalf("EmbedQuestion: %v", err)
	}
	if res.Dimension != 3 {
		t.Fatalf("dimension = %d", res.Dimension)
	}
	if res.Model != "text-embedding-3-small" {
		t.Fatalf("model = %q", res.Model)
	}
	if len(ai.inputs) != 1 || len(ai.inputs[0]) != 1 {
		t.Fatalf("expected one embed call with one input, got %v", ai.inputs)
	}
	if ai.inputs[0][0] != "What is 2NF?\n\nConsider relation R." {
		t.Fatalf("embed input = %q", ai.inputs[0][0])
	}
}

func TestEmbedQuestionRejectsEmptyText(t *testing.T) {
	ai := &fakeOpenAI{vecs: [][]float32{{0.1}}}
	svc, err := NewEmbeddingService(testutil.Logger(t), ai)
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}

	if _, err := svc.EmbedQuestion(context.Background(), EmbeddingInput{Question: "   "}); err == nil {
		t.Fatal("expected error for blank question")
	}
	if len(ai.inputs) != 0 {
		t.Fatal("embed must not be called for blank question")
	}
}

func TestEmbedQuestionPropagatesProviderError(t *testing.T) {
	ai := &fakeOpenAI{err: fmt.Errorf("openai http 500: boom")}
	svc, err := NewEmbeddingService(testutil.Logger(t), ai)
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}

	if _, err := svc.EmbedQuestion(context.Background(), EmbeddingInput{Question: "q"}); err == nil {
		t.Fatal("expected provider error to surface")
	}
}
