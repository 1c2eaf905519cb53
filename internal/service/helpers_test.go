package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/edusphere/course-api/internal/models"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/jobs"
)

// stubModuleStore is an in-memory ModuleStore with programmable failures.
type stubModuleStore struct {
	mu sync.Mutex

	modules map[string]*models.Module

	findErr      error
	saveErr      error
	saveFailures int // fail this many Save calls before succeeding
	findFailures int // fail this many FindWithTemporaryAttachments calls

	saveCalls int
	findCalls int
	saved     []models.Module
}

func newStubModuleStore(modules ...*models.Module) *stubModuleStore {
	s := &stubModuleStore{modules: make(map[string]*models.Module)}
	for _, m := range modules {
		s.modules[m.ID] = m
	}
	return s
}

func (s *stubModuleStore) FindByIDAndTeacher(_ context.Context, id, teacherID string) (*models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	m, ok := s.modules[id]
	if !ok || m.TeacherID != teacherID {
		return nil, sql.ErrNoRows
	}
	return m.Clone(), nil
}

func (s *stubModuleStore) ListByTeacher(_ context.Context, teacherID string) ([]models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Module
	for _, m := range s.modules {
		if m.TeacherID == teacherID {
			out = append(out, *m.Clone())
		}
	}
	return out, nil
}

func (s *stubModuleStore) Create(_ context.Context, module *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	module.CreatedAt = time.Now().UTC()
	module.UpdatedAt = module.CreatedAt
	s.modules[module.ID] = module.Clone()
	return nil
}

func (s *stubModuleStore) Save(_ context.Context, module *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveFailures > 0 {
		s.saveFailures--
		return sql.ErrConnDone
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	clone := module.Clone()
	s.modules[module.ID] = clone
	s.saved = append(s.saved, *clone)
	return nil
}

func (s *stubModuleStore) FindWithTemporaryAttachments(_ context.Context) ([]models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findFailures > 0 {
		s.findFailures--
		return nil, sql.ErrConnDone
	}
	var out []models.Module
	for _, m := range s.modules {
		if m.HasTemporaryAttachments() {
			out = append(out, *m.Clone())
		}
	}
	return out, nil
}

func (s *stubModuleStore) stored(id string) *models.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modules[id]
}

// stubQueue records enqueued jobs.
type stubQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (q *stubQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) locators() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Locator)
	}
	return out
}

// stubCache is an in-memory CacheStore tracking invalidations.
type stubCache struct {
	mu       sync.Mutex
	values   map[string]interface{}
	deleted  []string
	setCalls int
}

func newStubCache() *stubCache {
	return &stubCache{values: make(map[string]interface{})}
}

func (c *stubCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if m, ok := v.(*models.Module); ok {
		if out, ok := dest.(*models.Module); ok {
			*out = *m.Clone()
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (c *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if m, ok := value.(*models.Module); ok {
		c.values[key] = m.Clone()
		return nil
	}
	c.values[key] = value
	return nil
}

func (c *stubCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	c.values = make(map[string]interface{})
	return nil
}

// stubIngestor fabricates attachments without touching storage.
type stubIngestor struct {
	mu      sync.Mutex
	ingests []Upload
	err     error
}

func (s *stubIngestor) Ingest(_ context.Context, moduleID string, up Upload) (models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Attachment{}, s.err
	}
	s.ingests = append(s.ingests, up)
	return models.Attachment{
		Locator:     "/uploads/modules/" + moduleID + "/" + up.Filename,
		Kind:        up.DeclaredKind,
		DisplayName: up.Filename,
		SizeBytes:   up.Size,
		UploadedAt:  time.Now().UTC(),
		Temporary:   true,
	}, nil
}
