package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cosmosits/questionbank-backend/internal/clients/pinecone"
	repos "github.com/cosmosits/questionbank-backend/internal/data/repos/questions"
	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/apierr"
	"github.com/cosmosits/questionbank-backend/internal/platform/dbctx"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

// Transaction outcomes reported to callers on failure.
const (
	// TxAborted: nothing changed in either store; safe to retry as-is.
	TxAborted = "aborted"
	// TxFailed: the operation stopped partway; any side effect that landed
	// was compensated unless Critical is set.
	TxFailed = "failed"
	// TxCompleted: both stores updated.
	TxCompleted = "completed"
)

// Failure stages, in sequence order.
const (
	StageEmbed     = "embed"
	StageNamespace = "namespace"
	StageVector    = "vector"
	StageRecord    = "record"
)

// Re-embed failure categories.
const (
	CategoryVectorError   = "vector_error"
	CategoryDatabaseError = "database_error"
)

// SyncFailure reports a pipeline failure with enough detail for an operator
// to reconcile manually if the sweep cannot.
type SyncFailure struct {
	Op          string
	Stage       string
	Transaction string
	Critical    bool
	QuestionID  int64
	VectorID    string
	Err         error
}

func (e *SyncFailure) Error() string {
	if e == nil {
		return "sync failure"
	}
	return fmt.Sprintf("%s %s stage failed (transaction=%s): %v", e.Op, e.Stage, e.Transaction, e.Err)
}

func (e *SyncFailure) Unwrap() error { return e.Err }

type CreateQuestionInput struct {
	CourseCode   string `json:"course_code"`
	CourseTitle  string `json:"course_title"`
	Short        string `json:"short"`
	SemesterTerm string `json:"semester_term"`
	ExamType     string `json:"exam_type"`

	QuestionNumber int    `json:"question_number"`
	SubQuestion    string `json:"sub_question"`

	Marks                  float64 `json:"marks"`
	TotalQuestionMark      float64 `json:"total_question_mark"`
	ContributionPercentage float64 `json:"contribution_percentage"`

	Question           string  `json:"question"`
	HasDescription     bool    `json:"has_description"`
	DescriptionContent *string `json:"description_content"`
	HasImage           bool    `json:"has_image"`
	ImageType          *string `json:"image_type"`
	ImageURL           *string `json:"image_url"`
	PDFURL             *string `json:"pdf_url"`
}

type CreateQuestionResult struct {
	Part             *questions.QuestionPart
	IndexName        string
	Namespace        string
	VectorDimensions int
}

type ReembedUpdated struct {
	ID       int64  `json:"id"`
	VectorID string `json:"vector_id"`
}

type ReembedFailed struct {
	ID       int64  `json:"id"`
	Error    string `json:"error"`
	Category string `json:"category"`
}

type ReembedSummary struct {
	TotalProcessed    int `json:"total_processed"`
	SuccessfulUpserts int `json:"successful_upserts"`
	FailedUpserts     int `json:"failed_upserts"`
	VectorErrors      int `json:"vector_errors"`
	DatabaseErrors    int `json:"database_errors"`
}

type ReembedResult struct {
	Total   int
	Updated []ReembedUpdated
	Failed  []ReembedFailed
	Summary ReembedSummary
}

type DeleteQuestionResult struct {
	DeletedID int64
	VectorID  string
}

// QuestionSyncService owns the relationship between the record store and the
// vector index; it is the only component that calls both for one logical
// operation.
type QuestionSyncService interface {
	CreateQuestion(ctx context.Context, in CreateQuestionInput) (*CreateQuestionResult, error)
	ReembedCourse(ctx context.Context, short string) (*ReembedResult, error)
	DeleteQuestion(ctx context.Context, id int64) (*DeleteQuestionResult, error)

	GetQuestion(ctx context.Context, id int64) (*questions.QuestionPart, error)
	ListCourseQuestions(ctx context.Context, short string) ([]*questions.QuestionPart, error)
}

type questionSyncService struct {
	db       *gorm.DB
	log      *logger.Logger
	parts    repos.QuestionPartRepo
	intents  repos.SyncIntentRepo
	embedder EmbeddingService
	resolver NamespaceResolver
	vectors  pinecone.VectorStore
	nsPrefix string
}

func NewQuestionSyncService(
	db *gorm.DB,
	log *logger.Logger,
	parts repos.QuestionPartRepo,
	intents repos.SyncIntentRepo,
	embedder EmbeddingService,
	resolver NamespaceResolver,
	vectors pinecone.VectorStore,
	nsPrefix string,
) QuestionSyncService {
	return &questionSyncService{
		db:       db,
		log:      log.With("service", "QuestionSyncService"),
		parts:    parts,
		intents:  intents,
		embedder: embedder,
		resolver: resolver,
		vectors:  vectors,
		nsPrefix: nsPrefix,
	}
}

func (s *questionSyncService) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

// CreateQuestion sequences: validate, embed, resolve namespace, open intent,
// upsert vector, insert record. The vector goes in first so the compensating
// action on a record-insert failure is a plain idempotent vector delete.
func (s *questionSyncService) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*CreateQuestionResult, error) {
	if err := validateCreate(in); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_required_fields", err)
	}

	vectorID := uuid.New()
	part := buildPart(in, vectorID)

	emb, err := s.embedder.EmbedQuestion(ctx, EmbeddingInput{
		Question:           in.Question,
		HasDescription:     in.HasDescription,
		DescriptionContent: in.DescriptionContent,
	})
	if err != nil {
		return nil, &SyncFailure{Op: questions.SyncOpCreate, Stage: StageEmbed, Transaction: TxAborted, Err: err}
	}

	ns, err := s.resolver.Resolve(ctx, in.Short)
	if err != nil {
		return nil, &SyncFailure{Op: questions.SyncOpCreate, Stage: StageNamespace, Transaction: TxAborted, Err: err}
	}

	dbc := s.dbc(ctx)
	intent := &questions.SyncIntent{
		Op:          questions.SyncOpCreate,
		VectorID:    &vectorID,
		CourseShort: in.Short,
		Namespace:   ns.Namespace,
	}
	if err := s.intents.Create(dbc, intent); err != nil {
		return nil, &SyncFailure{Op: questions.SyncOpCreate, Stage: StageRecord, Transaction: TxAborted, Err: fmt.Errorf("write sync intent: %w", err)}
	}

	if err := s.vectors.Upsert(ctx, ns.IndexHost, ns.Namespace, vectorID.String(), emb.Values, questions.ProjectMetadata(part)); err != nil {
		_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompensated, map[string]any{"reason": "vector_upsert_failed"})
		return nil, &SyncFailure{Op: questions.SyncOpCreate, Stage: StageVector, Transaction: TxAborted, VectorID: vectorID.String(), Err: err}
	}

	if err := s.parts.Create(dbc, part); err != nil {
		if delErr := s.vectors.Delete(ctx, ns.IndexHost, ns.Namespace, vectorID.String()); delErr != nil {
			// Orphan vector left behind; the intent stays open so the sweep
			// picks it up.
			s.log.Error("Create compensation failed; orphan vector left for reconciliation",
				"vector_id", vectorID.String(),
				"namespace", ns.Namespace,
				"insert_error", err,
				"rollback_error", delErr,
			)
			return nil, &SyncFailure{Op: questions.SyncOpCreate, Stage: StageRecord, Transaction: TxFailed, VectorID: vectorID.String(), Err: err}
		}
		_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompensated, map[string]any{"reason": "record_insert_failed"})
		return nil, &SyncFailure{Op: questions.SyncOpCreate, Stage: StageRecord, Transaction: TxFailed, VectorID: vectorID.String(), Err: err}
	}

	_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompleted, map[string]any{"question_id": part.ID})
	s.log.Info("Question created and embedded",
		"question_id", part.ID,
		"vector_id", vectorID.String(),
		"namespace", ns.Namespace,
		"dimension", emb.Dimension,
	)
	return &CreateQuestionResult{
		Part:             part,
		IndexName:        ns.IndexName,
		Namespace:        ns.Namespace,
		VectorDimensions: emb.Dimension,
	}, nil
}

// ReembedCourse re-embeds every question of a course, one record at a time.
// Per-record failures are accumulated, not fatal; the batch always reports a
// full summary.
func (s *questionSyncService) ReembedCourse(ctx context.Context, short string) (*ReembedResult, error) {
	short = strings.TrimSpace(short)
	if short == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_course_code", fmt.Errorf("course short code required"))
	}
	nsName, err := NamespaceName(s.nsPrefix, short)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_course_code", err)
	}

	dbc := s.dbc(ctx)
	parts, err := s.parts.GetByCourseShort(dbc, short)
	if err != nil {
		return nil, fmt.Errorf("load course questions: %w", err)
	}

	intent := &questions.SyncIntent{
		Op:          questions.SyncOpReembed,
		CourseShort: short,
		Namespace:   nsName,
	}
	if err := s.intents.Create(dbc, intent); err != nil {
		return nil, fmt.Errorf("write sync intent: %w", err)
	}

	res := &ReembedResult{Total: len(parts)}
	for _, p := range parts {
		s.reembedOne(ctx, dbc, p, res)
	}

	res.Summary.TotalProcessed = len(parts)
	res.Summary.SuccessfulUpserts = len(res.Updated)
	res.Summary.FailedUpserts = len(res.Failed)

	_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompleted, map[string]any{
		"total_processed":    res.Summary.TotalProcessed,
		"successful_upserts": res.Summary.SuccessfulUpserts,
		"failed_upserts":     res.Summary.FailedUpserts,
	})
	s.log.Info("Course re-embed finished",
		"short", short,
		"total", res.Summary.TotalProcessed,
		"ok", res.Summary.SuccessfulUpserts,
		"failed", res.Summary.FailedUpserts,
	)
	return res, nil
}

func (s *questionSyncService) reembedOne(ctx context.Context, dbc dbctx.Context, p *questions.QuestionPart, res *ReembedResult) {
	fail := func(err error, category string) {
		res.Failed = append(res.Failed, ReembedFailed{ID: p.ID, Error: err.Error(), Category: category})
		switch category {
		case CategoryDatabaseError:
			res.Summary.DatabaseErrors++
		default:
			res.Summary.VectorErrors++
		}
		s.log.Warn("Re-embed failed for question", "question_id", p.ID, "category", category, "error", err)
	}

	emb, err := s.embedder.EmbedQuestion(ctx, EmbeddingInput{
		Question:           p.Question,
		HasDescription:     p.HasDescription,
		DescriptionContent: p.DescriptionContent,
	})
	if err != nil {
		fail(err, CategoryVectorError)
		return
	}

	ns, err := s.resolver.Resolve(ctx, p.Short)
	if err != nil {
		fail(err, CategoryVectorError)
		return
	}

	// First embedding for this record: persist a stable vector id before the
	// upsert so the record always ends up addressable.
	if p.VectorID == nil {
		newID := uuid.New()
		if err := s.parts.Update(dbc, p.ID, map[string]any{"vector_id": newID}); err != nil {
			fail(fmt.Errorf("assign vector id: %w", err), CategoryDatabaseError)
			return
		}
		p.VectorID = &newID
	}

	if err := s.vectors.Upsert(ctx, ns.IndexHost, ns.Namespace, p.VectorID.String(), emb.Values, questions.ProjectMetadata(p)); err != nil {
		fail(err, CategoryVectorError)
		return
	}

	res.Updated = append(res.Updated, ReembedUpdated{ID: p.ID, VectorID: p.VectorID.String()})
}

// DeleteQuestion removes the vector first, then the record. A record-delete
// failure after the vector is gone is the one state this service cannot
// repair in-request; it is flagged critical and left to the sweep.
func (s *questionSyncService) DeleteQuestion(ctx context.Context, id int64) (*DeleteQuestionResult, error) {
	dbc := s.dbc(ctx)

	part, err := s.parts.GetByID(dbc, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, apierr.New(http.StatusNotFound, "question_not_found", fmt.Errorf("question %d not found", id))
		}
		return nil, &SyncFailure{Op: questions.SyncOpDelete, Stage: StageRecord, Transaction: TxAborted, QuestionID: id, Err: err}
	}

	var ns *CourseNamespace
	vectorID := ""
	if part.VectorID != nil {
		vectorID = part.VectorID.String()
		// Refusing the whole delete beats leaving an orphaned vector behind.
		ns, err = s.resolver.Resolve(ctx, part.Short)
		if err != nil {
			return nil, &SyncFailure{Op: questions.SyncOpDelete, Stage: StageNamespace, Transaction: TxAborted, QuestionID: id, VectorID: vectorID, Err: err}
		}
	}

	intent := &questions.SyncIntent{
		Op:          questions.SyncOpDelete,
		QuestionID:  &id,
		VectorID:    part.VectorID,
		CourseShort: part.Short,
	}
	if ns != nil {
		intent.Namespace = ns.Namespace
	}
	if err := s.intents.Create(dbc, intent); err != nil {
		return nil, &SyncFailure{Op: questions.SyncOpDelete, Stage: StageRecord, Transaction: TxAborted, QuestionID: id, VectorID: vectorID, Err: fmt.Errorf("write sync intent: %w", err)}
	}

	if part.VectorID != nil {
		if err := s.vectors.Delete(ctx, ns.IndexHost, ns.Namespace, vectorID); err != nil {
			_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompensated, map[string]any{"reason": "vector_delete_failed"})
			return nil, &SyncFailure{Op: questions.SyncOpDelete, Stage: StageVector, Transaction: TxFailed, QuestionID: id, VectorID: vectorID, Err: err}
		}
	}

	if err := s.parts.Delete(dbc, id); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			// Lost a race with another delete; both stores already agree.
			_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompleted, map[string]any{"note": "record_already_gone"})
			return &DeleteQuestionResult{DeletedID: id, VectorID: vectorID}, nil
		}
		if part.VectorID != nil {
			_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCritical, map[string]any{"reason": "record_delete_failed_after_vector_delete"})
			s.log.Error("Critical inconsistency: vector deleted but record delete failed",
				"question_id", id,
				"vector_id", vectorID,
				"error", err,
			)
			return nil, &SyncFailure{Op: questions.SyncOpDelete, Stage: StageRecord, Transaction: TxFailed, Critical: true, QuestionID: id, VectorID: vectorID, Err: err}
		}
		_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompensated, map[string]any{"reason": "record_delete_failed"})
		return nil, &SyncFailure{Op: questions.SyncOpDelete, Stage: StageRecord, Transaction: TxAborted, QuestionID: id, Err: err}
	}

	_ = s.intents.MarkStatus(dbc, intent.ID, questions.IntentCompleted, nil)
	s.log.Info("Question deleted", "question_id", id, "vector_id", vectorID)
	return &DeleteQuestionResult{DeletedID: id, VectorID: vectorID}, nil
}

func (s *questionSyncService) GetQuestion(ctx context.Context, id int64) (*questions.QuestionPart, error) {
	part, err := s.parts.GetByID(s.dbc(ctx), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, apierr.New(http.StatusNotFound, "question_not_found", fmt.Errorf("question %d not found", id))
		}
		return nil, err
	}
	return part, nil
}

func (s *questionSyncService) ListCourseQuestions(ctx context.Context, short string) ([]*questions.QuestionPart, error) {
	short = strings.TrimSpace(short)
	if short == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_course_code", fmt.Errorf("course short code required"))
	}
	return s.parts.GetByCourseShort(s.dbc(ctx), short)
}

func validateCreate(in CreateQuestionInput) error {
	missing := []string{}
	require := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	require("course_code", in.CourseCode)
	require("course_title", in.CourseTitle)
	require("short", in.Short)
	require("semester_term", in.SemesterTerm)
	require("exam_type", in.ExamType)
	require("question", in.Question)
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func buildPart(in CreateQuestionInput, vectorID uuid.UUID) *questions.QuestionPart {
	return &questions.QuestionPart{
		CourseCode:             strings.TrimSpace(in.CourseCode),
		CourseTitle:            strings.TrimSpace(in.CourseTitle),
		Short:                  strings.TrimSpace(in.Short),
		SemesterTerm:           strings.TrimSpace(in.SemesterTerm),
		ExamType:               strings.TrimSpace(in.ExamType),
		QuestionNumber:         in.QuestionNumber,
		SubQuestion:            strings.TrimSpace(in.SubQuestion),
		Marks:                  in.Marks,
		TotalQuestionMark:      in.TotalQuestionMark,
		ContributionPercentage: in.ContributionPercentage,
		Question:               strings.TrimSpace(in.Question),
		HasDescription:         in.HasDescription,
		DescriptionContent:     in.DescriptionContent,
		HasImage:               in.HasImage,
		ImageType:              in.ImageType,
		ImageURL:               in.ImageURL,
		PDFURL:                 in.PDFURL,
		VectorID:               &vectorID,
	}
}
