package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/models"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/jobs"
)

// FileIngestor persists raw upload bytes and returns the attachment record.
type FileIngestor interface {
	Ingest(ctx context.Context, moduleID string, up Upload) (models.Attachment, error)
}

// AttachmentService attaches uploaded files to module sub-entities and
// detaches them again. Every mutation rewrites the whole module document.
type AttachmentService struct {
	modules ModuleStore
	uploads FileIngestor
	cache   CacheStore
	queue   BackgroundQueue
	logger  *zap.Logger
}

// NewAttachmentService constructs the service. cache and queue may be nil.
func NewAttachmentService(modules ModuleStore, uploads FileIngestor, cache CacheStore, queue BackgroundQueue, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{modules: modules, uploads: uploads, cache: cache, queue: queue, logger: logger}
}

// AttachToChapter stores the upload and appends it to the chapter at the
// given position. Missing chapters up to the index are created as
// placeholders so an upload can never target a hole in the list.
func (s *AttachmentService) AttachToChapter(ctx context.Context, teacherID, moduleID string, index int, up Upload) (models.Attachment, error) {
	if index < 0 {
		return models.Attachment{}, appErrors.Clone(appErrors.ErrValidation, "chapter index must not be negative")
	}

	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return models.Attachment{}, err
	}

	attachment, err := s.uploads.Ingest(ctx, moduleID, up)
	if err != nil {
		return models.Attachment{}, err
	}

	chapter := module.EnsureChapter(index)
	chapter.Attachments = append(chapter.Attachments, attachment)

	if err := s.modules.Save(ctx, module); err != nil {
		return models.Attachment{}, err
	}
	s.invalidate(ctx, moduleID)
	return attachment, nil
}

// AttachToSyllabus stores the upload and appends it to the module syllabus.
func (s *AttachmentService) AttachToSyllabus(ctx context.Context, teacherID, moduleID string, up Upload) (models.Attachment, error) {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return models.Attachment{}, err
	}

	attachment, err := s.uploads.Ingest(ctx, moduleID, up)
	if err != nil {
		return models.Attachment{}, err
	}

	module.Syllabus.Attachments = append(module.Syllabus.Attachments, attachment)

	if err := s.modules.Save(ctx, module); err != nil {
		return models.Attachment{}, err
	}
	s.invalidate(ctx, moduleID)
	return attachment, nil
}

// AttachToReference stores the upload and appends it to an existing
// reference. Unlike chapters, references are never auto-created: uploading
// against a missing index is an error.
func (s *AttachmentService) AttachToReference(ctx context.Context, teacherID, moduleID string, index int, up Upload) (models.Attachment, error) {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return models.Attachment{}, err
	}
	if index < 0 || index >= len(module.References) {
		return models.Attachment{}, appErrors.ErrReferenceNotFound
	}

	attachment, err := s.uploads.Ingest(ctx, moduleID, up)
	if err != nil {
		return models.Attachment{}, err
	}

	module.References[index].Attachments = append(module.References[index].Attachments, attachment)

	if err := s.modules.Save(ctx, module); err != nil {
		return models.Attachment{}, err
	}
	s.invalidate(ctx, moduleID)
	return attachment, nil
}

// RemoveChapterAttachment drops the attachment at fileIndex from the chapter
// at chapterIndex and reclaims its bytes in the background.
func (s *AttachmentService) RemoveChapterAttachment(ctx context.Context, teacherID, moduleID string, chapterIndex, fileIndex int) error {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return err
	}
	if chapterIndex < 0 || chapterIndex >= len(module.Chapters) {
		return appErrors.ErrChapterNotFound
	}

	removed, err := removeAt(&module.Chapters[chapterIndex].Attachments, fileIndex)
	if err != nil {
		return err
	}
	if err := s.modules.Save(ctx, module); err != nil {
		return err
	}
	s.invalidate(ctx, moduleID)
	s.enqueueDelete(removed.Locator)
	return nil
}

// RemoveSyllabusAttachment drops the attachment at fileIndex from the syllabus.
func (s *AttachmentService) RemoveSyllabusAttachment(ctx context.Context, teacherID, moduleID string, fileIndex int) error {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return err
	}

	removed, err := removeAt(&module.Syllabus.Attachments, fileIndex)
	if err != nil {
		return err
	}
	if err := s.modules.Save(ctx, module); err != nil {
		return err
	}
	s.invalidate(ctx, moduleID)
	s.enqueueDelete(removed.Locator)
	return nil
}

// RemoveReferenceAttachment drops the attachment at fileIndex from the
// reference at refIndex.
func (s *AttachmentService) RemoveReferenceAttachment(ctx context.Context, teacherID, moduleID string, refIndex, fileIndex int) error {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return err
	}
	if refIndex < 0 || refIndex >= len(module.References) {
		return appErrors.ErrReferenceNotFound
	}

	removed, err := removeAt(&module.References[refIndex].Attachments, fileIndex)
	if err != nil {
		return err
	}
	if err := s.modules.Save(ctx, module); err != nil {
		return err
	}
	s.invalidate(ctx, moduleID)
	s.enqueueDelete(removed.Locator)
	return nil
}

func (s *AttachmentService) loadOwned(ctx context.Context, moduleID, teacherID string) (*models.Module, error) {
	module, err := s.modules.FindByIDAndTeacher(ctx, moduleID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrModuleNotFound
		}
		return nil, err
	}
	return module, nil
}

func (s *AttachmentService) invalidate(ctx context.Context, moduleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, moduleCacheKeyPattern(moduleID)); err != nil {
		s.logger.Warn("failed to invalidate module cache", zap.String("module_id", moduleID), zap.Error(err))
	}
}

func (s *AttachmentService) enqueueDelete(locator string) {
	if s.queue == nil || locator == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeDeleteFile,
		Locator: locator,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue file delete", zap.String("locator", locator), zap.Error(err))
	}
}

func removeAt(list *models.AttachmentList, index int) (models.Attachment, error) {
	if index < 0 || index >= len(*list) {
		return models.Attachment{}, appErrors.Clone(appErrors.ErrNotFound,
			fmt.Sprintf("no attachment at position %d", index))
	}
	removed := (*list)[index]
	*list = append((*list)[:index], (*list)[index+1:]...)
	return removed, nil
}

func moduleCacheKeyPattern(moduleID string) string {
	return "module:detail:" + moduleID + ":*"
}
