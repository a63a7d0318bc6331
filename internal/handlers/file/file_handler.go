// internal/handlers/file/file_handler.go
package file

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"taskhub-service/internal/domain/file"
	"taskhub-service/internal/middleware"
	"taskhub-service/internal/pkg/response"
	filesvc "taskhub-service/internal/service/file"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart framing allowed on top of the file itself
const formOverhead = 1 << 20

type Service interface {
	Upload(ctx context.Context, userID string, up filesvc.Upload) (*file.File, error)
	Get(ctx context.Context, id, userID string, admin bool) (*file.File, error)
	List(ctx context.Context, userID string, admin bool) ([]*file.File, error)
	Open(ctx context.Context, id, userID string, admin bool) (*file.File, io.ReadCloser, error)
	Delete(ctx context.Context, id, userID string, admin bool) error
	MaxSize() int64
}

type FileHandler struct {
	service Service
	logger  *zap.Logger
}

func NewFileHandler(service Service, logger *zap.Logger) *FileHandler {
	return &FileHandler{service: service, logger: logger}
}

// Upload handles a multipart upload in the "file" field.
func (h *FileHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxSize()+formOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "file too large", nil)
			return
		}
		response.ValidationError(c, "multipart field \"file\" is required", err)
		return
	}

	body, err := header.Open()
	if err != nil {
		response.ValidationError(c, "unreadable upload", err)
		return
	}
	defer body.Close()

	f, err := h.service.Upload(c.Request.Context(), middleware.MustGetUserID(c), filesvc.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		h.logger.Warn("upload rejected", zap.String("name", header.Filename), zap.Error(err))
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "file uploaded", f)
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context(), middleware.MustGetUserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "files retrieved", files)
}

func (h *FileHandler) Get(c *gin.Context) {
	f, err := h.service.Get(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "file retrieved", f)
}

// Download streams the stored content as an attachment.
func (h *FileHandler) Download(c *gin.Context) {
	f, rc, err := h.service.Open(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}

	c.DataFromReader(http.StatusOK, f.Size, f.MimeType, rc, map[string]string{
		"Content-Disposition":    disposition,
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "private, max-age=300",
	})
}

func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c), middleware.IsAdmin(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "file deleted", nil)
}
