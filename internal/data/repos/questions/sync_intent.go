package questions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
	"github.com/cosmosits/questionbank-backend/internal/platform/dbctx"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

type SyncIntentRepo interface {
	Create(dbc dbctx.Context, row *questions.SyncIntent) error
	MarkStatus(dbc dbctx.Context, id uuid.UUID, status string, detail map[string]any) error
	ListUnresolvedBefore(dbc dbctx.Context, before time.Time, limit int) ([]*questions.SyncIntent, error)
}

type syncIntentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncIntentRepo(db *gorm.DB, baseLog *logger.Logger) SyncIntentRepo {
	return &syncIntentRepo{db: db, log: baseLog.With("repo", "SyncIntentRepo")}
}

func (r *syncIntentRepo) Create(dbc dbctx.Context, row *questions.SyncIntent) error {
	t := dbc.DB(r.db)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Status == "" {
		row.Status = questions.IntentOpen
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *syncIntentRepo) MarkStatus(dbc dbctx.Context, id uuid.UUID, status string, detail map[string]any) error {
	t := dbc.DB(r.db)
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err == nil {
			updates["detail"] = raw
		}
	}
	return t.WithContext(dbc.Ctx).
		Model(&questions.SyncIntent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListUnresolvedBefore returns open and critical intents last touched before
// the cutoff, oldest first. These are the sweep's work queue.
func (r *syncIntentRepo) ListUnresolvedBefore(dbc dbctx.Context, before time.Time, limit int) ([]*questions.SyncIntent, error) {
	t := dbc.DB(r.db)
	var out []*questions.SyncIntent
	q := t.WithContext(dbc.Ctx).
		Where("status IN ? AND updated_at < ?", []string{questions.IntentOpen, questions.IntentCritical}, before).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
