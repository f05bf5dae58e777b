package questions

import (
	"strings"
	"time"
)

// ProjectMetadata builds the vector metadata document for a question part.
// The index backend mishandles nulls, so optional fields are omitted rather
// than written as null, and timestamps are serialized as RFC3339 strings.
// Field rules are explicit here on purpose; do not replace this with a
// generic struct walker.
func ProjectMetadata(p *QuestionPart) map[string]any {
	m := map[string]any{
		"course_code":             p.CourseCode,
		"course_title":            p.CourseTitle,
		"short":                   p.Short,
		"semester_term":           p.SemesterTerm,
		"exam_type":               p.ExamType,
		"question_number":         p.QuestionNumber,
		"marks":                   p.Marks,
		"total_question_mark":     p.TotalQuestionMark,
		"contribution_percentage": p.ContributionPercentage,
		"question":                p.Question,
		"has_description":         p.HasDescription,
		"has_image":               p.HasImage,
	}
	// On create the vector is written before the insert assigns the id, so
	// the id lands in metadata on the next re-embed.
	if p.ID != 0 {
		m["question_id"] = p.ID
	}
	if s := strings.TrimSpace(p.SubQuestion); s != "" {
		m["sub_question"] = s
	}
	if p.HasDescription && p.DescriptionContent != nil {
		if s := strings.TrimSpace(*p.DescriptionContent); s != "" {
			m["description_content"] = s
		}
	}
	if p.HasImage {
		if p.ImageType != nil && strings.TrimSpace(*p.ImageType) != "" {
			m["image_type"] = strings.TrimSpace(*p.ImageType)
		}
		if p.ImageURL != nil && strings.TrimSpace(*p.ImageURL) != "" {
			m["image_url"] = strings.TrimSpace(*p.ImageURL)
		}
	}
	if p.PDFURL != nil && strings.TrimSpace(*p.PDFURL) != "" {
		m["pdf_url"] = strings.TrimSpace(*p.PDFURL)
	}
	if !p.CreatedAt.IsZero() {
		m["created_at"] = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		m["updated_at"] = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return m
}
