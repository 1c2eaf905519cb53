package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FileKind classifies an uploaded attachment.
type FileKind string

const (
	FileKindPDF      FileKind = "pdf"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
)

// Valid reports whether the kind is one of the supported values.
func (k FileKind) Valid() bool {
	switch k {
	case FileKindPDF, FileKindVideo, FileKindDocument:
		return true
	}
	return false
}

// Attachment is a file attached to a chapter, syllabus, or reference.
// It is embedded in the owning module document and never stored on its own.
// Uploads start life with Temporary=true; saving the owning sub-entity
// promotes them to permanent.
type Attachment struct {
	Locator     string    `json:"path"`
	Kind        FileKind  `json:"file_type"`
	DisplayName string    `json:"original_name"`
	SizeBytes   int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Temporary   bool      `json:"temporary"`
}

// AttachmentList is an ordered list of attachments owned by one sub-entity.
type AttachmentList []Attachment

// Promote marks every attachment permanent and reports whether anything changed.
func (l AttachmentList) Promote() bool {
	changed := false
	for i := range l {
		if l[i].Temporary {
			l[i].Temporary = false
			changed = true
		}
	}
	return changed
}

// Permanent returns a copy holding only non-temporary attachments.
func (l AttachmentList) Permanent() AttachmentList {
	if len(l) == 0 {
		return l
	}
	out := make(AttachmentList, 0, len(l))
	for _, a := range l {
		if !a.Temporary {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns an independent copy of the list.
func (l AttachmentList) Clone() AttachmentList {
	if l == nil {
		return nil
	}
	out := make(AttachmentList, len(l))
	copy(out, l)
	return out
}

// RemoveStale drops attachments that are still temporary and were uploaded
// before the cutoff. It returns the removed attachments.
func (l *AttachmentList) RemoveStale(cutoff time.Time) []Attachment {
	if len(*l) == 0 {
		return nil
	}
	var removed []Attachment
	kept := make(AttachmentList, 0, len(*l))
	for _, a := range *l {
		if a.Temporary && a.UploadedAt.Before(cutoff) {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	*l = kept
	return removed
}

// Chapter is a unit of module content, addressed by its position in the
// chapter list. Deleting a chapter shifts all subsequent indices down.
type Chapter struct {
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Attachments AttachmentList `json:"attachments"`
}

// Syllabus is the single syllabus document of a module.
type Syllabus struct {
	Content     string         `json:"content"`
	Attachments AttachmentList `json:"attachments"`
}

// Reference is a bibliographic entry of a module, addressed by position.
type Reference struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Attachments AttachmentList `json:"attachments"`
}

// ChapterList is stored as a JSONB column on the module row.
type ChapterList []Chapter

// ReferenceList is stored as a JSONB column on the module row.
type ReferenceList []Reference

// Module is the unit of persistence: every nested mutation is saved by
// rewriting the whole document. There is no cross-request locking on a
// module; concurrent writers race and the last full save wins.
type Module struct {
	ID           string        `db:"id" json:"id"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	Title        string        `db:"title" json:"title"`
	Description  string        `db:"description" json:"description"`
	Level        string        `db:"level" json:"level"`
	Semester     string        `db:"semester" json:"semester"`
	AcademicYear string        `db:"academic_year" json:"academic_year"`
	Chapters     ChapterList   `db:"chapters" json:"chapters"`
	Syllabus     Syllabus      `db:"syllabus" json:"syllabus"`
	References   ReferenceList `db:"refs" json:"references"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// EnsureChapter grows the chapter list with placeholder chapters until the
// given index exists and returns a pointer to it. Placeholders carry a
// default title so out-of-order uploads never target a missing chapter.
func (m *Module) EnsureChapter(index int) *Chapter {
	for len(m.Chapters) <= index {
		m.Chapters = append(m.Chapters, Chapter{
			Title: fmt.Sprintf("Chapter %d", len(m.Chapters)+1),
		})
	}
	return &m.Chapters[index]
}

// Clone returns a deep copy of the module document. Mutating the copy, for
// example to filter a read view, never writes through to the original's
// attachment lists.
func (m *Module) Clone() *Module {
	clone := *m
	if m.Chapters != nil {
		clone.Chapters = make(ChapterList, len(m.Chapters))
		for i, c := range m.Chapters {
			c.Attachments = c.Attachments.Clone()
			clone.Chapters[i] = c
		}
	}
	clone.Syllabus.Attachments = m.Syllabus.Attachments.Clone()
	if m.References != nil {
		clone.References = make(ReferenceList, len(m.References))
		for i, r := range m.References {
			r.Attachments = r.Attachments.Clone()
			clone.References[i] = r
		}
	}
	return &clone
}

// RemoveStaleAttachments drops temporary attachments older than the cutoff
// from every nested list and returns everything that was removed.
func (m *Module) RemoveStaleAttachments(cutoff time.Time) []Attachment {
	var removed []Attachment
	for i := range m.Chapters {
		removed = append(removed, m.Chapters[i].Attachments.RemoveStale(cutoff)...)
	}
	removed = append(removed, m.Syllabus.Attachments.RemoveStale(cutoff)...)
	for i := range m.References {
		removed = append(removed, m.References[i].Attachments.RemoveStale(cutoff)...)
	}
	return removed
}

// FilterTemporary strips temporary attachments from every nested list.
// Used by the read-only detail view so uncommitted uploads never show up
// as official module content.
func (m *Module) FilterTemporary() {
	for i := range m.Chapters {
		m.Chapters[i].Attachments = m.Chapters[i].Attachments.Permanent()
	}
	m.Syllabus.Attachments = m.Syllabus.Attachments.Permanent()
	for i := range m.References {
		m.References[i].Attachments = m.References[i].Attachments.Permanent()
	}
}

// HasTemporaryAttachments reports whether any nested list still carries a
// temporary attachment.
func (m *Module) HasTemporaryAttachments() bool {
	for i := range m.Chapters {
		for _, a := range m.Chapters[i].Attachments {
			if a.Temporary {
				return true
			}
		}
	}
	for _, a := range m.Syllabus.Attachments {
		if a.Temporary {
			return true
		}
	}
	for i := range m.References {
		for _, a := range m.References[i].Attachments {
			if a.Temporary {
				return true
			}
		}
	}
	return false
}

// Value implements driver.Valuer for JSONB storage.
func (c ChapterList) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage.
func (c *ChapterList) Scan(src interface{}) error {
	return scanJSON(src, c, "chapters")
}

// Value implements driver.Valuer for JSONB storage.
func (r ReferenceList) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB storage.
func (r *ReferenceList) Scan(src interface{}) error {
	return scanJSON(src, r, "references")
}

// Value implements driver.Valuer for JSONB storage.
func (s Syllabus) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB storage.
func (s *Syllabus) Scan(src interface{}) error {
	return scanJSON(src, s, "syllabus")
}

func scanJSON(src, dest interface{}, column string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("scan %s: unsupported type %T", column, src)
	}
}
