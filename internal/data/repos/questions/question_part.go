package questions

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/dbctx"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

type QuestionPartRepo interface {
	GetByID(dbc dbctx.Context, id int64) (*questions.QuestionPart, error)
	GetByVectorID(dbc dbctx.Context, vectorID uuid.UUID) (*questions.QuestionPart, error)
	GetByCourseShort(dbc dbctx.Context, short string) ([]*questions.QuestionPart, error)
	Create(dbc dbctx.Context, row *questions.QuestionPart) error
	Update(dbc dbctx.Context, id int64, patch map[string]any) error
	Delete(dbc dbctx.Context, id int64) error
}

type questionPartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionPartRepo(db *gorm.DB, baseLog *logger.Logger) QuestionPartRepo {
	return &questionPartRepo{db: db, log: baseLog.With("repo", "QuestionPartRepo")}
}

func (r *questionPartRepo) GetByID(dbc dbctx.Context, id int64) (*questions.QuestionPart, error) {
	t := dbc.DB(r.db)
	var row questions.QuestionPart
	if err := t.WithContext(dbc.Ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *questionPartRepo) GetByVectorID(dbc dbctx.Context, vectorID uuid.UUID) (*questions.QuestionPart, error) {
	t := dbc.DB(r.db)
	if vectorID == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var row questions.QuestionPart
	if err := t.WithContext(dbc.Ctx).First(&row, "vector_id = ?", vectorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *questionPartRepo) GetByCourseShort(dbc dbctx.Context, short string) ([]*questions.QuestionPart, error) {
	t := dbc.DB(r.db)
	var out []*questions.QuestionPart
	if short == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("short = ?", short).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionPartRepo) Create(dbc dbctx.Context, row *questions.QuestionPart) error {
	t := dbc.DB(r.db)
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *questionPartRepo) Update(dbc dbctx.Context, id int64, patch map[string]any) error {
	t := dbc.DB(r.db)
	if len(patch) == 0 {
		return nil
	}
	if _, ok := patch["updated_at"]; !ok {
		patch["updated_at"] = time.Now().UTC()
	}
	res := t.WithContext(dbc.Ctx).
		Model(&questions.QuestionPart{}).
		Where("id = ?", id).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *questionPartRepo) Delete(dbc dbctx.Context, id int64) error {
	t := dbc.DB(r.db)
	res := t.WithContext(dbc.Ctx).Delete(&questions.QuestionPart{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
