package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/middleware"
	"github.com/edusphere/course-api/pkg/storage"
)

func newFileRouter(t *testing.T) (*gin.Engine, *storage.LocalStorage, *storage.SignedURLSigner) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	h := NewFileHandler(signer, local, "/uploads", zap.NewNop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, teacherClaims())
	})
	router.POST("/api/v1/modules/:id/files/sign", h.Sign)
	router.GET("/api/v1/files/download", h.Download)
	return router, local, signer
}

func TestSignAndDownloadRoundTrip(t *testing.T) {
	router, local, _ := newFileRouter(t)
	_, err := local.Save("modules/mod-1/notes.pdf", []byte("%PDF fake"))
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"path":"/uploads/modules/mod-1/notes.pdf"}`)
	w := performRequest(router, http.MethodPost, "/api/v1/modules/mod-1/files/sign", body, "application/json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)

	w = performRequest(router, http.MethodGet,
		"/api/v1/files/download?token="+url.QueryEscape(envelope.Data.Token), nil, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF fake", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.pdf")
}

func TestDownloadRejectsTamperedToken(t *testing.T) {
	router, local, signer := newFileRouter(t)
	_, err := local.Save("modules/mod-1/notes.pdf", []byte("%PDF fake"))
	require.NoError(t, err)

	token, _, err := signer.Generate("mod-1", "modules/mod-1/notes.pdf")
	require.NoError(t, err)
	tampered := token[:len(token)-2] + "xx"

	w := performRequest(router, http.MethodGet,
		"/api/v1/files/download?token="+url.QueryEscape(tampered), nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDownloadMissingFile(t *testing.T) {
	router, _, signer := newFileRouter(t)

	token, _, err := signer.Generate("mod-1", "modules/mod-1/gone.pdf")
	require.NoError(t, err)

	w := performRequest(router, http.MethodGet,
		"/api/v1/files/download?token="+url.QueryEscape(token), nil, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignRejectsTraversal(t *testing.T) {
	router, _, _ := newFileRouter(t)

	body := bytes.NewBufferString(`{"path":"/uploads/../etc/passwd"}`)
	w := performRequest(router, http.MethodPost, "/api/v1/modules/mod-1/files/sign", body, "application/json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
