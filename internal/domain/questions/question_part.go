package questions

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionPart is the durable unit of truth for one exam-question fragment.
// VectorID ties the row to at most one vector in the course namespace; it is
// nil until the first successful embedding.
type QuestionPart struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	CourseCode  string `gorm:"column:course_code;not null;index" json:"course_code"`
	CourseTitle string `gorm:"column:course_title;not null" json:"course_title"`
	// Short is the course short name; it keys the vector namespace.
	Short        string `gorm:"column:short;not null;index" json:"short"`
	SemesterTerm string `gorm:"column:semester_term;not null" json:"semester_term"`
	ExamType     string `gorm:"column:exam_type;not null" json:"exam_type"`

	QuestionNumber int    `gorm:"column:question_number" json:"question_number"`
	SubQuestion    string `gorm:"column:sub_question" json:"sub_question"`

	Marks                  float64 `gorm:"column:marks" json:"marks"`
	TotalQuestionMark      float64 `gorm:"column:total_question_mark" json:"total_question_mark"`
	ContributionPercentage float64 `gorm:"column:contribution_percentage" json:"contribution_percentage"`

	Question           string  `gorm:"column:question;type:text;not null" json:"question"`
	HasDescription     bool    `gorm:"column:has_description" json:"has_description"`
	DescriptionContent *string `gorm:"column:description_content;type:text" json:"description_content,omitempty"`
	HasImage           bool    `gorm:"column:has_image" json:"has_image"`
	ImageType          *string `gorm:"column:image_type" json:"image_type,omitempty"`
	ImageURL           *string `gorm:"column:image_url" json:"image_url,omitempty"`
	PDFURL             *string `gorm:"column:pdf_url" json:"pdf_url,omitempty"`

	VectorID *uuid.UUID `gorm:"column:vector_id;type:uuid;uniqueIndex" json:"vector_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (QuestionPart) TableName() string { return "question_parts" }

// EmbeddingText assembles the text fed to the embedding model: the question,
// plus the description when one is attached.
func (p *QuestionPart) EmbeddingText() string {
	text := strings.TrimSpace(p.Question)
	if p.HasDescription && p.DescriptionContent != nil {
		if desc := strings.TrimSpace(*p.DescriptionContent); desc != "" {
			text = text + "\n\n" + desc
		}
	}
	return text
}
