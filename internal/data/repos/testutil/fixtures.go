package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
)

func SeedQuestionPart(tb testing.TB, ctx context.Context, tx *gorm.DB, short string, vectorID *uuid.UUID) *questions.QuestionPart {
	tb.Helper()
	p := &questions.QuestionPart{
		CourseCode:        "CSE-1115",
		CourseTitle:       "Object Oriented Programming",
		Short:             short,
		SemesterTerm:      "Spring 2025",
		ExamType:          "Final",
		QuestionNumber:    1,
		Marks:             5,
		TotalQuestionMark: 10,
		Question:          "What is 2NF?",
		VectorID:          vectorID,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed question part: %v", err)
	}
	return p
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrStr(v string) *string { return &v }
