package handler

import (
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/middleware"
	appErrors "github.com/edusphere/course-api/pkg/errors"
	"github.com/edusphere/course-api/pkg/response"
	"github.com/edusphere/course-api/pkg/storage"
)

// FileHandler serves locally stored attachments via signed download links.
// Cloud-hosted attachments carry their own delivery URL and never hit these
// endpoints.
type FileHandler struct {
	signer         *storage.SignedURLSigner
	local          *storage.LocalStorage
	publicBasePath string
	logger         *zap.Logger
}

// NewFileHandler constructs the handler.
func NewFileHandler(signer *storage.SignedURLSigner, local *storage.LocalStorage, publicBasePath string, logger *zap.Logger) *FileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileHandler{signer: signer, local: local, publicBasePath: publicBasePath, logger: logger}
}

type signRequest struct {
	Path string `json:"path" binding:"required"`
}

// Sign handles POST /modules/:id/files/sign. It exchanges a stored locator
// for a short-lived download token.
func (h *FileHandler) Sign(c *gin.Context) {
	if _, ok := middleware.ClaimsFromContext(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path is required"))
		return
	}

	rel := strings.TrimPrefix(req.Path, h.publicBasePath)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file path"))
		return
	}

	token, expiresAt, err := h.signer.Generate(c.Param("id"), rel)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download link"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC(),
	}, nil)
}

// Download handles GET /files/download?token=... and streams the file.
func (h *FileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	_, rel, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if strings.Contains(rel, "..") {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	file, err := h.local.Open(rel)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+path.Base(rel)+`"`)
	c.Header("Cache-Control", "private, no-store")
	http.ServeContent(c.Writer, c.Request, path.Base(rel), statModTime(file), file)
}

func statModTime(f *os.File) time.Time {
	info, err := f.Stat()
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
