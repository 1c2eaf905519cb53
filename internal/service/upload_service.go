package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/config"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/storage"
)

// Upload carries one incoming file through ingestion.
type Upload struct {
	Filename     string
	Size         int64
	Data         []byte
	DeclaredKind models.FileKind
}

// UploadService validates incoming files and writes their bytes to storage.
// In development files land on local disk; in production they go to the
// configured blob store and the attachment locator becomes the delivery URL.
type UploadService struct {
	cfg     config.UploadsConfig
	local   *storage.LocalStorage
	blobs   storage.BlobStore
	folder  string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewUploadService constructs the service. blobs and metrics may be nil;
// without a blob store every upload is stored locally.
func NewUploadService(cfg config.UploadsConfig, local *storage.LocalStorage, blobs storage.BlobStore, blobFolder string, metrics *MetricsService, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{cfg: cfg, local: local, blobs: blobs, folder: blobFolder, metrics: metrics, logger: logger}
}

// Ingest validates the upload and persists its bytes, returning the resulting
// attachment. The attachment is always born temporary; committing the owning
// sub-entity later flips it to permanent.
func (s *UploadService) Ingest(ctx context.Context, moduleID string, up Upload) (models.Attachment, error) {
	if up.Size > s.cfg.MaxFileSizeBytes {
		return models.Attachment{}, appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("file %q exceeds the %d byte limit", up.Filename, s.cfg.MaxFileSizeBytes))
	}

	kind, err := s.resolveKind(up)
	if err != nil {
		return models.Attachment{}, err
	}

	locator, err := s.persist(ctx, moduleID, up)
	if err != nil {
		return models.Attachment{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordUpload(string(kind))
	}

	return models.Attachment{
		Locator:     locator,
		Kind:        kind,
		DisplayName: up.Filename,
		SizeBytes:   up.Size,
		UploadedAt:  time.Now().UTC(),
		Temporary:   true,
	}, nil
}

// Remove reclaims the stored bytes behind a locator. Locators pointing at the
// blob store are resolved back to their public identifier; everything else is
// treated as a local path.
func (s *UploadService) Remove(ctx context.Context, locator string) error {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		if s.blobs == nil {
			s.logger.Warn("no blob store configured, skipping remote delete", zap.String("locator", locator))
			return nil
		}
		publicID := storage.PublicIDFromURL(locator)
		if publicID == "" {
			return appErrors.Clone(appErrors.ErrStorage, fmt.Sprintf("cannot derive object id from %q", locator))
		}
		if err := s.blobs.Delete(ctx, publicID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "delete stored object")
		}
		return nil
	}

	rel := strings.TrimPrefix(locator, s.cfg.PublicBasePath)
	rel = strings.TrimPrefix(rel, "/")
	if err := s.local.Delete(rel); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "delete stored file")
	}
	return nil
}

func (s *UploadService) resolveKind(up Upload) (models.FileKind, error) {
	declared := up.DeclaredKind
	if declared == "" {
		declared = models.FileKindDocument
	}
	if !declared.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %q", declared))
	}

	inferred := inferKind(up.Filename)
	if inferred != declared {
		if s.cfg.StrictTypeValidation {
			return "", appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("file %q does not look like a %s", up.Filename, declared))
		}
		// Browsers and office suites disagree on extensions often enough
		// that a mismatch is accepted as declared unless strict mode is on.
		s.logger.Warn("file kind mismatch, accepting declared kind",
			zap.String("filename", up.Filename),
			zap.String("declared", string(declared)),
			zap.String("inferred", string(inferred)))
	}
	return declared, nil
}

func (s *UploadService) persist(ctx context.Context, moduleID string, up Upload) (string, error) {
	if s.blobs != nil {
		folder := path.Join(s.folder, "modules", moduleID)
		ref, err := s.blobs.Put(ctx, up.Data, folder)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "store uploaded file")
		}
		return ref.URL, nil
	}

	name := uuid.NewString() + sanitizeExt(up.Filename)
	rel := path.Join("modules", moduleID, name)
	if _, err := s.local.Save(rel, up.Data); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "store uploaded file")
	}
	return path.Join(s.cfg.PublicBasePath, rel), nil
}

func inferKind(filename string) models.FileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.FileKindPDF
	case ".mp4", ".mov", ".avi", ".wmv", ".flv", ".mkv", ".webm":
		return models.FileKindVideo
	default:
		return models.FileKindDocument
	}
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
