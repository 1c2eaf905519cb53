package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/config"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/storage"
)

func newTestUploadService(t *testing.T, cfg config.UploadsConfig) (*UploadService, string) {
	t.Helper()
	dir := t.TempDir()
	cfg.StorageDir = dir
	if cfg.PublicBasePath == "" {
		cfg.PublicBasePath = "/uploads"
	}
	if cfg.MaxFileSizeBytes == 0 {
		cfg.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	local, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return NewUploadService(cfg, local, nil, "", nil, zap.NewNop()), dir
}

func TestUploadServiceIngestStoresTemporaryAttachment(t *testing.T) {
	svc, dir := newTestUploadService(t, config.UploadsConfig{})

	attachment, err := svc.Ingest(context.Background(), "mod-1", Upload{
		Filename:     "lecture-notes.pdf",
		Size:         4,
		Data:         []byte("%PDF"),
		DeclaredKind: models.FileKindPDF,
	})
	require.NoError(t, err)

	assert.True(t, attachment.Temporary)
	assert.Equal(t, models.FileKindPDF, attachment.Kind)
	assert.Equal(t, "lecture-notes.pdf", attachment.DisplayName)
	assert.Equal(t, int64(4), attachment.SizeBytes)
	assert.True(t, strings.HasPrefix(attachment.Locator, "/uploads/modules/mod-1/"))
	assert.True(t, strings.HasSuffix(attachment.Locator, ".pdf"))
	assert.False(t, attachment.UploadedAt.IsZero())

	rel := strings.TrimPrefix(attachment.Locator, "/uploads/")
	stored, err := os.ReadFile(filepath.Join(dir, rel))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), stored)
}

func TestUploadServiceIngestRejectsOversizedFile(t *testing.T) {
	svc, _ := newTestUploadService(t, config.UploadsConfig{MaxFileSizeBytes: 10})

	_, err := svc.Ingest(context.Background(), "mod-1", Upload{
		Filename:     "big.pdf",
		Size:         11,
		Data:         []byte("0123456789X"),
		DeclaredKind: models.FileKindPDF,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErr.Code)
}

func TestUploadServiceIngestRejectsUnknownKind(t *testing.T) {
	svc, _ := newTestUploadService(t, config.UploadsConfig{})

	_, err := svc.Ingest(context.Background(), "mod-1", Upload{
		Filename:     "data.bin",
		Size:         1,
		Data:         []byte("x"),
		DeclaredKind: models.FileKind("archive"),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUploadServiceIngestAcceptsMismatchByDefault(t *testing.T) {
	svc, _ := newTestUploadService(t, config.UploadsConfig{})

	// A .mp4 declared as pdf: the declared kind wins unless strict mode is on.
	attachment, err := svc.Ingest(context.Background(), "mod-1", Upload{
		Filename:     "clip.mp4",
		Size:         3,
		Data:         []byte("abc"),
		DeclaredKind: models.FileKindPDF,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FileKindPDF, attachment.Kind)
}

func TestUploadServiceIngestRejectsMismatchInStrictMode(t *testing.T) {
	svc, _ := newTestUploadService(t, config.UploadsConfig{StrictTypeValidation: true})

	_, err := svc.Ingest(context.Background(), "mod-1", Upload{
		Filename:     "clip.mp4",
		Size:         3,
		Data:         []byte("abc"),
		DeclaredKind: models.FileKindPDF,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUploadServiceRemoveDeletesLocalFile(t *testing.T) {
	svc, dir := newTestUploadService(t, config.UploadsConfig{})

	attachment, err := svc.Ingest(context.Background(), "mod-1", Upload{
		Filename:     "notes.pdf",
		Size:         4,
		Data:         []byte("%PDF"),
		DeclaredKind: models.FileKindPDF,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), attachment.Locator))

	rel := strings.TrimPrefix(attachment.Locator, "/uploads/")
	_, statErr := os.Stat(filepath.Join(dir, rel))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInferKind(t *testing.T) {
	assert.Equal(t, models.FileKindPDF, inferKind("a.PDF"))
	assert.Equal(t, models.FileKindVideo, inferKind("a.mov"))
	assert.Equal(t, models.FileKindVideo, inferKind("a.webm"))
	assert.Equal(t, models.FileKindDocument, inferKind("a.docx"))
	assert.Equal(t, models.FileKindDocument, inferKind("noext"))
}
