package dto

import "github.com/edusphere/course-api/internal/models"

// CreateModuleRequest is the admin payload for creating a module shell.
type CreateModuleRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	Level        string `json:"level"`
	Semester     string `json:"semester"`
	AcademicYear string `json:"academic_year"`
	TeacherID    string `json:"teacher_id" validate:"required"`
}

// AddChapterRequest appends a single chapter to a module.
type AddChapterRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// ChapterPayload mirrors a chapter as submitted by the editing client.
// Clients are not required to round-trip attachments they did not touch:
// an empty attachment list means "keep whatever the server already has".
type ChapterPayload struct {
	Title       string                `json:"title" validate:"required"`
	Content     string                `json:"content"`
	Attachments models.AttachmentList `json:"attachments"`
}

// UpdateChaptersRequest is the bulk chapter-save payload.
type UpdateChaptersRequest struct {
	Chapters []ChapterPayload `json:"chapters" validate:"required,max=100,dive"`
}

// UpdateSyllabusRequest updates syllabus content and commits its uploads.
type UpdateSyllabusRequest struct {
	Content string `json:"content"`
}

// CreateReferenceRequest appends a reference entry.
type CreateReferenceRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// UpdateReferenceRequest patches a reference in place. Nil fields are left
// untouched.
type UpdateReferenceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// AttachmentCreatedResponse is returned by the upload endpoints.
type AttachmentCreatedResponse struct {
	ModuleID   string            `json:"module_id"`
	EntityType string            `json:"entity_type"`
	Index      *int              `json:"index,omitempty"`
	Attachment models.Attachment `json:"attachment"`
}
