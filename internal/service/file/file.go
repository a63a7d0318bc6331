// internal/service/file/file.go
package file

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"taskhub-service/internal/domain/file"
	xerrors "taskhub-service/internal/pkg/errors"
	"taskhub-service/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Upload is one incoming file.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type FileService struct {
	repo    file.Repository
	blobs   storage.BlobStore
	maxSize int64
	logger  *zap.Logger
}

func NewFileService(repo file.Repository, blobs storage.BlobStore, maxSize int64, logger *zap.Logger) *FileService {
	if maxSize <= 0 {
		maxSize = file.DefaultMaxSize
	}
	return &FileService{
		repo:    repo,
		blobs:   blobs,
		maxSize: maxSize,
		logger:  logger,
	}
}

// MaxSize is the largest accepted upload in bytes.
func (s *FileService) MaxSize() int64 {
	return s.maxSize
}

// Upload stores the blob, then its metadata. If the metadata insert fails
// the blob is removed again.
func (s *FileService) Upload(ctx context.Context, userID string, up Upload) (*file.File, error) {
	if up.Size <= 0 {
		return nil, fmt.Errorf("file is empty: %w", xerrors.ErrInvalidInput)
	}
	if up.Size > s.maxSize {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxSize, xerrors.ErrInvalidInput)
	}

	mimeType := normalizeMime(up.ContentType, up.Name)
	if !file.AllowedMimeTypes[mimeType] {
		return nil, fmt.Errorf("file type %q not allowed: %w", mimeType, xerrors.ErrInvalidInput)
	}

	id := uuid.NewString()
	f := &file.File{
		ID:           id,
		Filename:     uuid.NewString() + extension(up.Name),
		OriginalName: filepath.Base(up.Name),
		MimeType:     mimeType,
		Size:         up.Size,
		URL:          "/api/v1/files/" + id + "/download",
		UserID:       userID,
	}

	if err := s.blobs.Put(ctx, f.Filename, io.LimitReader(up.Body, s.maxSize), up.Size, mimeType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if derr := s.blobs.Delete(ctx, f.Filename); derr != nil {
			s.logger.Warn("failed to remove orphaned blob", zap.String("key", f.Filename), zap.Error(derr))
		}
		return nil, err
	}

	s.logger.Info("file uploaded",
		zap.String("file_id", f.ID),
		zap.String("user_id", userID),
		zap.Int64("size", f.Size),
	)
	return f, nil
}

// Get returns file metadata. Non-admins only see their own files; other
// users' files are reported as not found.
func (s *FileService) Get(ctx context.Context, id, userID string, admin bool) (*file.File, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && f.UserID != userID {
		return nil, xerrors.ErrNotFound
	}
	return f, nil
}

// List returns the caller's files, or every file for an admin.
func (s *FileService) List(ctx context.Context, userID string, admin bool) ([]*file.File, error) {
	owner := userID
	if admin {
		owner = ""
	}
	return s.repo.List(ctx, owner)
}

// Open returns the metadata and content of a file. The caller closes the reader.
func (s *FileService) Open(ctx context.Context, id, userID string, admin bool) (*file.File, io.ReadCloser, error) {
	f, err := s.Get(ctx, id, userID, admin)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, f.Filename)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// Delete removes the metadata, then the blob. A blob that cannot be
// removed is logged and left behind.
func (s *FileService) Delete(ctx context.Context, id, userID string, admin bool) error {
	f, err := s.Get(ctx, id, userID, admin)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, f.Filename); err != nil {
		s.logger.Warn("failed to delete blob", zap.String("key", f.Filename), zap.Error(err))
	}

	s.logger.Info("file deleted", zap.String("file_id", f.ID), zap.String("by", userID))
	return nil
}

func normalizeMime(contentType, name string) string {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// extension keeps a short alphanumeric extension and drops anything else.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
