package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/dto"
	"github.com/edusphere/course-api/internal/middleware"
	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/internal/service"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/response"
)

// ModuleEditor is the slice of ModuleService the handler depends on.
type ModuleEditor interface {
	List(ctx context.Context, teacherID string) ([]models.Module, error)
	Get(ctx context.Context, teacherID, moduleID string) (*models.Module, error)
	GetForEdit(ctx context.Context, teacherID, moduleID string) (*models.Module, error)
	Create(ctx context.Context, req dto.CreateModuleRequest) (*models.Module, error)
	ReplaceChapters(ctx context.Context, teacherID, moduleID string, req dto.UpdateChaptersRequest) (*models.Module, error)
	AddChapter(ctx context.Context, teacherID, moduleID string, req dto.AddChapterRequest) (*models.Module, error)
	DeleteChapter(ctx context.Context, teacherID, moduleID string, index int) (*models.Module, error)
	UpdateSyllabus(ctx context.Context, teacherID, moduleID string, req dto.UpdateSyllabusRequest) (*models.Module, error)
	AddReference(ctx context.Context, teacherID, moduleID string, req dto.CreateReferenceRequest) (*models.Module, error)
	UpdateReference(ctx context.Context, teacherID, moduleID string, index int, req dto.UpdateReferenceRequest) (*models.Module, error)
	DeleteReference(ctx context.Context, teacherID, moduleID string, index int) (*models.Module, error)
}

// AttachmentManager is the slice of AttachmentService the handler depends on.
type AttachmentManager interface {
	AttachToChapter(ctx context.Context, teacherID, moduleID string, index int, up service.Upload) (models.Attachment, error)
	AttachToSyllabus(ctx context.Context, teacherID, moduleID string, up service.Upload) (models.Attachment, error)
	AttachToReference(ctx context.Context, teacherID, moduleID string, index int, up service.Upload) (models.Attachment, error)
	RemoveChapterAttachment(ctx context.Context, teacherID, moduleID string, chapterIndex, fileIndex int) error
	RemoveSyllabusAttachment(ctx context.Context, teacherID, moduleID string, fileIndex int) error
	RemoveReferenceAttachment(ctx context.Context, teacherID, moduleID string, refIndex, fileIndex int) error
}

// ModuleHandler exposes module content editing over HTTP.
type ModuleHandler struct {
	modules     ModuleEditor
	attachments AttachmentManager
	maxBatch    int
	logger      *zap.Logger
}

// NewModuleHandler constructs the handler.
func NewModuleHandler(modules ModuleEditor, attachments AttachmentManager, maxFilesPerBatch int, logger *zap.Logger) *ModuleHandler {
	if maxFilesPerBatch <= 0 {
		maxFilesPerBatch = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleHandler{modules: modules, attachments: attachments, maxBatch: maxFilesPerBatch, logger: logger}
}

// List handles GET /modules.
func (h *ModuleHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	modules, err := h.modules.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, modules, nil)
}

// Get handles GET /modules/:id, the published view without draft uploads.
func (h *ModuleHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	module, err := h.modules.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// GetForEdit handles GET /modules/:id/edit, the full document.
func (h *ModuleHandler) GetForEdit(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	module, err := h.modules.GetForEdit(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// Create handles POST /modules (admin only).
func (h *ModuleHandler) Create(c *gin.Context) {
	var req dto.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid module payload"))
		return
	}
	module, err := h.modules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// ReplaceChapters handles PUT /modules/:id/chapters.
func (h *ModuleHandler) ReplaceChapters(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chapters payload"))
		return
	}
	module, err := h.modules.ReplaceChapters(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// AddChapter handles POST /modules/:id/chapters.
func (h *ModuleHandler) AddChapter(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AddChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chapter payload"))
		return
	}
	module, err := h.modules.AddChapter(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// DeleteChapter handles DELETE /modules/:id/chapters/:index.
func (h *ModuleHandler) DeleteChapter(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	module, err := h.modules.DeleteChapter(c.Request.Context(), claims.UserID, c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// UpdateSyllabus handles PUT /modules/:id/syllabus.
func (h *ModuleHandler) UpdateSyllabus(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid syllabus payload"))
		return
	}
	module, err := h.modules.UpdateSyllabus(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// AddReference handles POST /modules/:id/references.
func (h *ModuleHandler) AddReference(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference payload"))
		return
	}
	module, err := h.modules.AddReference(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// UpdateReference handles PUT /modules/:id/references/:index.
func (h *ModuleHandler) UpdateReference(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference payload"))
		return
	}
	module, err := h.modules.UpdateReference(c.Request.Context(), claims.UserID, c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// DeleteReference handles DELETE /modules/:id/references/:index.
func (h *ModuleHandler) DeleteReference(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	module, err := h.modules.DeleteReference(c.Request.Context(), claims.UserID, c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// UploadChapterFiles handles POST /modules/:id/chapters/:index/files.
func (h *ModuleHandler) UploadChapterFiles(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	uploads, err := h.parseUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	attached := make([]dto.AttachmentCreatedResponse, 0, len(uploads))
	for _, up := range uploads {
		attachment, err := h.attachments.AttachToChapter(c.Request.Context(), claims.UserID, c.Param("id"), index, up)
		if err != nil {
			response.Error(c, err)
			return
		}
		attached = append(attached, dto.AttachmentCreatedResponse{
			ModuleID:   c.Param("id"),
			EntityType: "chapter",
			Index:      &index,
			Attachment: attachment,
		})
	}
	response.Created(c, attached)
}

// UploadSyllabusFiles handles POST /modules/:id/syllabus/files.
func (h *ModuleHandler) UploadSyllabusFiles(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	uploads, err := h.parseUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	attached := make([]dto.AttachmentCreatedResponse, 0, len(uploads))
	for _, up := range uploads {
		attachment, err := h.attachments.AttachToSyllabus(c.Request.Context(), claims.UserID, c.Param("id"), up)
		if err != nil {
			response.Error(c, err)
			return
		}
		attached = append(attached, dto.AttachmentCreatedResponse{
			ModuleID:   c.Param("id"),
			EntityType: "syllabus",
			Attachment: attachment,
		})
	}
	response.Created(c, attached)
}

// UploadReferenceFiles handles POST /modules/:id/references/:index/files.
func (h *ModuleHandler) UploadReferenceFiles(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	uploads, err := h.parseUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	attached := make([]dto.AttachmentCreatedResponse, 0, len(uploads))
	for _, up := range uploads {
		attachment, err := h.attachments.AttachToReference(c.Request.Context(), claims.UserID, c.Param("id"), index, up)
		if err != nil {
			response.Error(c, err)
			return
		}
		attached = append(attached, dto.AttachmentCreatedResponse{
			ModuleID:   c.Param("id"),
			EntityType: "reference",
			Index:      &index,
			Attachment: attachment,
		})
	}
	response.Created(c, attached)
}

// DeleteChapterFile handles DELETE /modules/:id/chapters/:index/files/:fileIndex.
func (h *ModuleHandler) DeleteChapterFile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	fileIndex, err := pathIndex(c, "fileIndex")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.attachments.RemoveChapterAttachment(c.Request.Context(), claims.UserID, c.Param("id"), index, fileIndex); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteSyllabusFile handles DELETE /modules/:id/syllabus/files/:fileIndex.
func (h *ModuleHandler) DeleteSyllabusFile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	fileIndex, err := pathIndex(c, "fileIndex")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.attachments.RemoveSyllabusAttachment(c.Request.Context(), claims.UserID, c.Param("id"), fileIndex); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteReferenceFile handles DELETE /modules/:id/references/:index/files/:fileIndex.
func (h *ModuleHandler) DeleteReferenceFile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	fileIndex, err := pathIndex(c, "fileIndex")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.attachments.RemoveReferenceAttachment(c.Request.Context(), claims.UserID, c.Param("id"), index, fileIndex); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// parseUploads reads the multipart form: one or more "file" parts plus a
// "fileType" field declaring the kind for the whole batch.
func (h *ModuleHandler) parseUploads(c *gin.Context) ([]service.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "multipart form required")
	}
	files := form.File["file"]
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no file provided")
	}
	if len(files) > h.maxBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("at most %d files per request", h.maxBatch))
	}

	kind := models.FileKind(c.PostForm("fileType"))
	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable upload")
		}
		data, err := io.ReadAll(file)
		file.Close() //nolint:errcheck
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable upload")
		}
		uploads = append(uploads, service.Upload{
			Filename:     fh.Filename,
			Size:         fh.Size,
			Data:         data,
			DeclaredKind: kind,
		})
	}
	return uploads, nil
}

func pathIndex(c *gin.Context, name string) (int, error) {
	index, err := strconv.Atoi(c.Param(name))
	if err != nil || index < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s", name))
	}
	return index, nil
}
