package file

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"taskhub-service/internal/domain/file"
	xerrors "taskhub-service/internal/pkg/errors"
	"taskhub-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu        sync.Mutex
	files     map[string]*file.File
	createErr error
}

func newMemRepo() *memRepo { return &memRepo{files: map[string]*file.File{}} }

func (r *memRepo) Create(_ context.Context, f *file.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, userID string) ([]*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*file.File
	for _, f := range r.files {
		if userID == "" || f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func newService(t *testing.T, maxSize int64) (*FileService, *memRepo, *storage.LocalStore) {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repo := newMemRepo()
	return NewFileService(repo, blobs, maxSize, zap.NewNop()), repo, blobs
}

func upload(name, contentType, body string) Upload {
	return Upload{Name: name, ContentType: contentType, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestUpload(t *testing.T) {
	svc, _, blobs := newService(t, 0)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "u1", upload("Notes.TXT", "text/plain; charset=utf-8", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "Notes.TXT", f.OriginalName)
	assert.Equal(t, "text/plain", f.MimeType)
	assert.True(t, strings.HasSuffix(f.Filename, ".txt"))
	assert.Equal(t, "/api/v1/files/"+f.ID+"/download", f.URL)
	assert.Equal(t, file.DefaultMaxSize, svc.MaxSize())

	rc, err := blobs.Get(ctx, f.Filename)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestUpload_Rejections(t *testing.T) {
	svc, repo, _ := newService(t, 8)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "u1", upload("big.txt", "text/plain", "123456789"))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.Upload(ctx, "u1", upload("run.sh", "application/x-sh", "echo"))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.Upload(ctx, "u1", upload("empty.txt", "text/plain", ""))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	assert.Empty(t, repo.files)
}

func TestUpload_MimeFromExtension(t *testing.T) {
	svc, _, _ := newService(t, 0)

	f, err := svc.Upload(context.Background(), "u1", upload("data.json", "application/octet-stream", "{}"))
	require.NoError(t, err)
	assert.Equal(t, "application/json", f.MimeType)
}

func TestUpload_StripsOddExtensions(t *testing.T) {
	assert.Equal(t, ".png", extension("photo.PNG"))
	assert.Equal(t, "", extension("archive.tar.g$z"))
	assert.Equal(t, "", extension("noext"))
}

func TestUpload_MetadataFailureRemovesBlob(t *testing.T) {
	dir := t.TempDir()
	blobs, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	repo := newMemRepo()
	repo.createErr = errors.New("db down")
	svc := NewFileService(repo, blobs, 0, zap.NewNop())

	_, err = svc.Upload(context.Background(), "u1", upload("a.txt", "text/plain", "x"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccessScoping(t *testing.T) {
	svc, _, _ := newService(t, 0)
	ctx := context.Background()

	mine, err := svc.Upload(ctx, "u1", upload("a.txt", "text/plain", "a"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "u2", upload("b.txt", "text/plain", "b"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, mine.ID, "u2", false)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	_, err = svc.Get(ctx, mine.ID, "admin", true)
	assert.NoError(t, err)

	own, err := svc.List(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	all, err := svc.List(ctx, "admin", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, _, err = svc.Open(ctx, mine.ID, "u2", false)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, rc, err := svc.Open(ctx, mine.ID, "u1", false)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "a", string(data))
}

func TestDelete(t *testing.T) {
	svc, repo, blobs := newService(t, 0)
	ctx := context.Background()
	f, err := svc.Upload(ctx, "u1", upload("a.txt", "text/plain", "a"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, f.ID, "u2", false), xerrors.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, f.ID, "u1", false))

	assert.Empty(t, repo.files)
	_, err = blobs.Get(ctx, f.Filename)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
