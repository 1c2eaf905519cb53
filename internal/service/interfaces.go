package service

import (
	"context"
	"time"

	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/jobs"
)

// ModuleStore is the persistence contract the services need for modules.
type ModuleStore interface {
	FindByIDAndTeacher(ctx context.Context, id, teacherID string) (*models.Module, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Save(ctx context.Context, module *models.Module) error
	FindWithTemporaryAttachments(ctx context.Context) ([]models.Module, error)
}

// UserStore is the persistence contract for user accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

// CacheStore abstracts the Redis-backed module cache.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// BackgroundQueue accepts fire-and-forget jobs such as blob deletions.
type BackgroundQueue interface {
	Enqueue(job jobs.Job) error
}

// JobTypeDeleteFile is the background job that reclaims stored file bytes.
// Its payload is the attachment locator.
const JobTypeDeleteFile = "file.delete"
