package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

// VectorStore is the data-plane surface the sync orchestrator talks to. Every
// call is scoped to an (index host, namespace) pair supplied by the namespace
// resolver; the store itself holds no index state.
type VectorStore interface {
	Upsert(ctx context.Context, host, namespace, vectorID string, values []float32, metadata map[string]any) error
	Delete(ctx context.Context, host, namespace, vectorID string) error
	Exists(ctx context.Context, host, namespace, vectorID string) (bool, error)
}

type vectorStore struct {
	log *logger.Logger
	pc  Client
}

func NewVectorStore(log *logger.Logger, pc Client) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	return &vectorStore{
		log: log.With("service", "PineconeVectorStore"),
		pc:  pc,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, host, namespace, vectorID string, values []float32, metadata map[string]any) error {
	if strings.TrimSpace(vectorID) == "" {
		return fmt.Errorf("vector id required")
	}
	if len(values) == 0 {
		return fmt.Errorf("vector values required")
	}
	_, err := s.pc.UpsertVectors(ctx, host, UpsertRequest{
		Namespace: namespace,
		Vectors:   []Vector{{ID: vectorID, Values: values, Metadata: metadata}},
	})
	return err
}

func (s *vectorStore) Delete(ctx context.Context, host, namespace, vectorID string) error {
	if strings.TrimSpace(vectorID) == "" {
		return nil
	}
	return s.pc.DeleteVectors(ctx, host, DeleteRequest{
		Namespace: namespace,
		IDs:       []string{vectorID},
	})
}

func (s *vectorStore) Exists(ctx context.Context, host, namespace, vectorID string) (bool, error) {
	if strings.TrimSpace(vectorID) == "" {
		return false, nil
	}
	resp, err := s.pc.FetchVectors(ctx, host, namespace, []string{vectorID})
	if err != nil {
		return false, err
	}
	_, ok := resp.Vectors[vectorID]
	return ok, nil
}
