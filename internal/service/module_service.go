package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/dto"
	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/config"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/jobs"
)

// ModuleService implements module content editing: chapters, syllabus, and
// references, plus the read paths the teaching UI consumes.
type ModuleService struct {
	modules  ModuleStore
	cache    CacheStore
	cacheCfg config.CacheConfig
	queue    BackgroundQueue
	validate *validator.Validate
	logger   *zap.Logger
}

// NewModuleService constructs the service. cache and queue may be nil.
func NewModuleService(modules ModuleStore, cache CacheStore, cacheCfg config.CacheConfig, queue BackgroundQueue, logger *zap.Logger) *ModuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{
		modules:  modules,
		cache:    cache,
		cacheCfg: cacheCfg,
		queue:    queue,
		validate: validator.New(),
		logger:   logger,
	}
}

// List returns the modules assigned to a teacher. Temporary attachments are
// stripped so uncommitted uploads never leak into listings.
func (s *ModuleService) List(ctx context.Context, teacherID string) ([]models.Module, error) {
	modules, err := s.modules.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	for i := range modules {
		modules[i].FilterTemporary()
	}
	return modules, nil
}

// Get returns the published view of a module: temporary attachments are
// filtered out. The result is cached per module and teacher.
func (s *ModuleService) Get(ctx context.Context, teacherID, moduleID string) (*models.Module, error) {
	key := moduleCacheKey(moduleID, teacherID)
	if s.cacheEnabled() {
		var cached models.Module
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("module cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	// Filter a copy so the loaded document is never mutated through a
	// shared attachment slice.
	view := module.Clone()
	view.FilterTemporary()

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, view, s.cacheCfg.TTL); err != nil {
			s.logger.Warn("module cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return view, nil
}

// GetForEdit returns the full module document including temporary
// attachments, for the editing surface. Never cached.
func (s *ModuleService) GetForEdit(ctx context.Context, teacherID, moduleID string) (*models.Module, error) {
	return s.loadOwned(ctx, moduleID, teacherID)
}

// Create builds a new empty module shell for a teacher.
func (s *ModuleService) Create(ctx context.Context, req dto.CreateModuleRequest) (*models.Module, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	module := &models.Module{
		ID:           uuid.NewString(),
		TeacherID:    req.TeacherID,
		Title:        req.Title,
		Description:  req.Description,
		Level:        req.Level,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Chapters:     models.ChapterList{},
		References:   models.ReferenceList{},
	}
	if err := s.modules.Create(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

// ReplaceChapters overwrites the chapter list with the submitted one and
// commits the attachment lists the client actually sent. A submitted chapter
// with an empty attachment list keeps the attachments already stored at that
// position, so editing titles and content cannot silently drop files the
// client never round-tripped. Preserved lists are carried over untouched:
// an upload the client never committed stays temporary and remains eligible
// for cleanup.
func (s *ModuleService) ReplaceChapters(ctx context.Context, teacherID, moduleID string, req dto.UpdateChaptersRequest) (*models.Module, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}

	next := make(models.ChapterList, 0, len(req.Chapters))
	for i, incoming := range req.Chapters {
		chapter := models.Chapter{
			Title:       incoming.Title,
			Content:     incoming.Content,
			Attachments: incoming.Attachments,
		}
		if len(chapter.Attachments) == 0 && i < len(module.Chapters) {
			chapter.Attachments = module.Chapters[i].Attachments
		} else {
			chapter.Attachments.Promote()
		}
		next = append(next, chapter)
	}

	// Chapters trimmed off the end of the list release their files.
	for i := len(req.Chapters); i < len(module.Chapters); i++ {
		for _, a := range module.Chapters[i].Attachments {
			s.enqueueDelete(a.Locator)
		}
	}

	module.Chapters = next

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

// AddChapter appends a chapter to the module.
func (s *ModuleService) AddChapter(ctx context.Context, teacherID, moduleID string, req dto.AddChapterRequest) (*models.Module, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	module.Chapters = append(module.Chapters, models.Chapter{
		Title:   req.Title,
		Content: req.Content,
	})

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

// DeleteChapter removes the chapter at the given position. Later chapters
// shift down one index. The chapter's files are reclaimed in the background.
func (s *ModuleService) DeleteChapter(ctx context.Context, teacherID, moduleID string, index int) (*models.Module, error) {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(module.Chapters) {
		return nil, appErrors.ErrChapterNotFound
	}

	for _, a := range module.Chapters[index].Attachments {
		s.enqueueDelete(a.Locator)
	}
	module.Chapters = append(module.Chapters[:index], module.Chapters[index+1:]...)

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

// UpdateSyllabus replaces the syllabus content and commits its uploads.
func (s *ModuleService) UpdateSyllabus(ctx context.Context, teacherID, moduleID string, req dto.UpdateSyllabusRequest) (*models.Module, error) {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	module.Syllabus.Content = req.Content
	module.Syllabus.Attachments.Promote()

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

// AddReference appends a reference entry to the module.
func (s *ModuleService) AddReference(ctx context.Context, teacherID, moduleID string, req dto.CreateReferenceRequest) (*models.Module, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	module.References = append(module.References, models.Reference{
		Title:       req.Title,
		Description: req.Description,
	})

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

// UpdateReference patches the reference at the given position and commits its
// uploads. Nil fields in the request leave the stored value untouched.
func (s *ModuleService) UpdateReference(ctx context.Context, teacherID, moduleID string, index int, req dto.UpdateReferenceRequest) (*models.Module, error) {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(module.References) {
		return nil, appErrors.ErrReferenceNotFound
	}

	ref := &module.References[index]
	if req.Title != nil {
		ref.Title = *req.Title
	}
	if req.Description != nil {
		ref.Description = *req.Description
	}
	ref.Attachments.Promote()

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

// DeleteReference removes the reference at the given position and reclaims
// its files in the background.
func (s *ModuleService) DeleteReference(ctx context.Context, teacherID, moduleID string, index int) (*models.Module, error) {
	module, err := s.loadOwned(ctx, moduleID, teacherID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(module.References) {
		return nil, appErrors.ErrReferenceNotFound
	}

	for _, a := range module.References[index].Attachments {
		s.enqueueDelete(a.Locator)
	}
	module.References = append(module.References[:index], module.References[index+1:]...)

	if err := s.modules.Save(ctx, module); err != nil {
		return nil, err
	}
	s.invalidate(ctx, moduleID)
	return module, nil
}

func (s *ModuleService) loadOwned(ctx context.Context, moduleID, teacherID string) (*models.Module, error) {
	module, err := s.modules.FindByIDAndTeacher(ctx, moduleID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrModuleNotFound
		}
		return nil, err
	}
	return module, nil
}

func (s *ModuleService) cacheEnabled() bool {
	return s.cache != nil && s.cacheCfg.Enabled
}

func (s *ModuleService) invalidate(ctx context.Context, moduleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, moduleCacheKeyPattern(moduleID)); err != nil {
		s.logger.Warn("failed to invalidate module cache", zap.String("module_id", moduleID), zap.Error(err))
	}
}

func (s *ModuleService) enqueueDelete(locator string) {
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

func moduleCacheKey(moduleID, teacherID string) string {
	return "module:detail:" + moduleID + ":" + teacherID
}
