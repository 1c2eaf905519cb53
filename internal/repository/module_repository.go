package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edusphere/course-api/internal/models"
)

// ModuleRepository persists module documents. Chapters, syllabus, and
// references live in JSONB columns; every save rewrites the whole document.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

const moduleColumns = `id, teacher_id, title, description, level, semester, academic_year, chapters, syllabus, refs, created_at, updated_at`

// FindByIDAndTeacher loads a module owned by the given teacher.
// Returns sql.ErrNoRows untouched so callers can map it to a 404.
func (r *ModuleRepository) FindByIDAndTeacher(ctx context.Context, id, teacherID string) (*models.Module, error) {
	const query = `SELECT ` + moduleColumns + ` FROM modules WHERE id = $1 AND teacher_id = $2 LIMIT 1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id, teacherID); err != nil {
		return nil, err
	}
	return &module, nil
}

// ListByTeacher returns all modules assigned to a teacher.
func (r *ModuleRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Module, error) {
	const query = `SELECT ` + moduleColumns + ` FROM modules WHERE teacher_id = $1 ORDER BY created_at ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list modules by teacher: %w", err)
	}
	return modules, nil
}

// Create inserts a new module document.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	const query = `INSERT INTO modules (` + moduleColumns + `)
VALUES (:id, :teacher_id, :title, :description, :level, :semester, :academic_year, :chapters, :syllabus, :refs, :created_at, :updated_at)`
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// Save overwrites the whole module document. There is no version check:
// concurrent writers race and the last save wins.
func (r *ModuleRepository) Save(ctx context.Context, module *models.Module) error {
	const query = `UPDATE modules
SET title = :title, description = :description, level = :level, semester = :semester,
    academic_year = :academic_year, chapters = :chapters, syllabus = :syllabus,
    refs = :refs, updated_at = :updated_at
WHERE id = :id`
	module.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("save module: %w", err)
	}
	return nil
}

// FindWithTemporaryAttachments returns every module still holding at least
// one temporary attachment anywhere in chapters, syllabus, or references.
// Used by the reclamation sweeper.
func (r *ModuleRepository) FindWithTemporaryAttachments(ctx context.Context) ([]models.Module, error) {
	const query = `SELECT ` + moduleColumns + ` FROM modules
WHERE jsonb_path_exists(chapters, '$[*].attachments[*] ? (@.temporary == true)')
   OR jsonb_path_exists(syllabus, '$.attachments[*] ? (@.temporary == true)')
   OR jsonb_path_exists(refs, '$[*].attachments[*] ? (@.temporary == true)')`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query); err != nil {
		return nil, fmt.Errorf("find modules with temporary attachments: %w", err)
	}
	return modules, nil
}
