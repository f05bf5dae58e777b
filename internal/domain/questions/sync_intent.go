package questions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SyncOpCreate  = "create"
	SyncOpReembed = "reembed"
	SyncOpDelete  = "delete"
)

const (
	// IntentOpen: written before external side effects; still in flight.
	IntentOpen = "open"
	// IntentCompleted: both stores agree; nothing to repair.
	IntentCompleted = "completed"
	// IntentCompensated: the operation failed but compensation restored a
	// consistent state in-request.
	IntentCompensated = "compensated"
	// IntentCritical: the stores disagree and in-request compensation could
	// not fix it; the reconciliation sweep owns it now.
	IntentCritical = "critical"
	// IntentResolved: the sweep repaired (or verified) the disagreement.
	IntentResolved = "resolved"
)

// SyncIntent is the durable write-ahead record for one sync operation against
// the vector index. A row is inserted before any external side effect and
// closed after, so the reconciliation sweep can find work left behind by
// partial failures or crashes mid-sequence.
type SyncIntent struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Op string `gorm:"column:op;not null;index" json:"op"`

	QuestionID  *int64     `gorm:"column:question_id;index" json:"question_id,omitempty"`
	VectorID    *uuid.UUID `gorm:"column:vector_id;type:uuid;index" json:"vector_id,omitempty"`
	CourseShort string     `gorm:"column:course_short;not null" json:"course_short"`
	Namespace   string     `gorm:"column:namespace;not null" json:"namespace"`

	Status string         `gorm:"column:status;not null;index" json:"status"`
	Detail datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (SyncIntent) TableName() string { return "question_sync_intents" }
