package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cosmosits/questionbank-backend/internal/clients/pinecone"
	repos "github.com/cosmosits/questionbank-backend/internal/data/repos/questions"
	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/dbctx"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

const reconcileLeaderKey = "questionsync:reconcile:leader"

type ReconcileReport struct {
	Scanned             int `json:"scanned"`
	OrphanVectorsPurged int `json:"orphan_vectors_purged"`
	RecordDeletesRedone int `json:"record_deletes_redone"`
	Verified            int `json:"verified"`
	Failures            int `json:"failures"`
}

// ReconcileService sweeps the sync-intent ledger for operations that ended in
// disagreement between the record store and the vector index, and repairs
// them: orphan vectors from failed creates are purged, record deletes that
// failed after their vector was removed are redone.
type ReconcileService interface {
	RunOnce(ctx context.Context) (*ReconcileReport, error)
	Start(ctx context.Context)
}

type ReconcileConfig struct {
	Interval  time.Duration
	MinAge    time.Duration
	BatchSize int
}

type reconcileService struct {
	log      *logger.Logger
	parts    repos.QuestionPartRepo
	intents  repos.SyncIntentRepo
	resolver NamespaceResolver
	vectors  pinecone.VectorStore
	rdb      *goredis.Client // optional leader lock
	cfg      ReconcileConfig
	instance string
}

func NewReconcileService(
	log *logger.Logger,
	parts repos.QuestionPartRepo,
	intents repos.SyncIntentRepo,
	resolver NamespaceResolver,
	vectors pinecone.VectorStore,
	rdb *goredis.Client,
	cfg ReconcileConfig,
) ReconcileService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &reconcileService{
		log:      log.With("service", "ReconcileService"),
		parts:    parts,
		intents:  intents,
		resolver: resolver,
		vectors:  vectors,
		rdb:      rdb,
		cfg:      cfg,
		instance: uuid.New().String(),
	}
}

func (s *reconcileService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.acquireLeader(ctx) {
					continue
				}
				report, err := s.RunOnce(ctx)
				if err != nil {
					s.log.Warn("Reconcile sweep failed", "error", err)
					continue
				}
				if report.Scanned > 0 {
					s.log.Info("Reconcile sweep finished",
						"scanned", report.Scanned,
						"orphan_vectors_purged", report.OrphanVectorsPurged,
						"record_deletes_redone", report.RecordDeletesRedone,
						"verified", report.Verified,
						"failures", report.Failures,
					)
				}
			}
		}
	}()
}

// acquireLeader keeps multiple instances from sweeping the same intents.
// Without Redis the single-instance deployment just runs.
func (s *reconcileService) acquireLeader(ctx context.Context) bool {
	if s.rdb == nil {
		return true
	}
	ok, err := s.rdb.SetNX(ctx, reconcileLeaderKey, s.instance, s.cfg.Interval).Result()
	if err != nil {
		s.log.Debug("leader lock unavailable; sweeping anyway", "error", err)
		return true
	}
	return ok
}

func (s *reconcileService) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cutoff := time.Now().UTC().Add(-s.cfg.MinAge)

	intents, err := s.intents.ListUnresolvedBefore(dbc, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Scanned: len(intents)}
	for _, intent := range intents {
		if err := s.repair(ctx, dbc, intent, report); err != nil {
			report.Failures++
			s.log.Warn("Intent repair failed; will retry next sweep",
				"intent_id", intent.ID,
				"op", intent.Op,
				"error", err,
			)
		}
	}
	return report, nil
}

func (s *reconcileService) repair(ctx context.Context, dbc dbctx.Context, intent *questions.SyncIntent, report *ReconcileReport) error {
	switch intent.Op {
	case questions.SyncOpCreate:
		return s.repairCreate(ctx, dbc, intent, report)
	case questions.SyncOpDelete:
		return s.repairDelete(ctx, dbc, intent, report)
	default:
		// Re-embed upserts are idempotent against stable vector ids; a stale
		// open intent means the request died mid-batch and the next re-embed
		// converges on its own.
		report.Verified++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "none_needed"})
	}
}

// repairCreate handles a create that never closed: either the record landed
// (crash before the intent update) or it did not and the vector is an orphan.
func (s *reconcileService) repairCreate(ctx context.Context, dbc dbctx.Context, intent *questions.SyncIntent, report *ReconcileReport) error {
	if intent.VectorID == nil {
		report.Verified++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "no_vector_id"})
	}

	_, err := s.parts.GetByVectorID(dbc, *intent.VectorID)
	if err == nil {
		report.Verified++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "record_present"})
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		return err
	}

	ns, err := s.resolver.Resolve(ctx, intent.CourseShort)
	if err != nil {
		return err
	}
	present, err := s.vectors.Exists(ctx, ns.IndexHost, ns.Namespace, intent.VectorID.String())
	if err != nil {
		return err
	}
	if !present {
		// The compensating delete did land; only the intent update was lost.
		report.Verified++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "vector_already_gone"})
	}
	if err := s.vectors.Delete(ctx, ns.IndexHost, ns.Namespace, intent.VectorID.String()); err != nil {
		return err
	}
	report.OrphanVectorsPurged++
	return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "orphan_vector_purged"})
}

// repairDelete retries the record-side delete of a critical inconsistency
// (vector already gone, record still present).
func (s *reconcileService) repairDelete(ctx context.Context, dbc dbctx.Context, intent *questions.SyncIntent, report *ReconcileReport) error {
	if intent.QuestionID == nil {
		report.Verified++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "no_question_id"})
	}

	err := s.parts.Delete(dbc, *intent.QuestionID)
	switch {
	case err == nil:
		report.RecordDeletesRedone++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "record_delete_redone"})
	case errors.Is(err, pkgerrors.ErrNotFound):
		report.Verified++
		return s.intents.MarkStatus(dbc, intent.ID, questions.IntentResolved, map[string]any{"repair": "record_already_gone"})
	default:
		return err
	}
}
