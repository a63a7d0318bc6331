package file

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"taskhub-service/internal/domain/file"
	"taskhub-service/internal/middleware"
	xerrors "taskhub-service/internal/pkg/errors"
	"taskhub-service/internal/pkg/jwt"
	filesvc "taskhub-service/internal/service/file"
	"taskhub-service/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu    sync.Mutex
	files map[string]*file.File
}

func (r *memRepo) Create(_ context.Context, f *file.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.ID] = f
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return f, nil
}

func (r *memRepo) List(_ context.Context, userID string) ([]*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*file.File{}
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
	delete(r.files, id)
	return nil
}

func setup(t *testing.T, maxSize int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := filesvc.NewFileService(&memRepo{files: map[string]*file.File{}}, blobs, maxSize, zap.NewNop())
	h := NewFileHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// X-User selects the caller so one engine can serve several users
		role := jwt.RoleUser
		if c.GetHeader("X-Admin") == "1" {
			role = jwt.RoleAdmin
		}
		middleware.SetIdentity(c, jwt.Identity{UserID: c.GetHeader("X-User"), Role: role})
	})
	r.POST("/files/upload", h.Upload)
	r.GET("/files", h.List)
	r.GET("/files/:id", h.Get)
	r.GET("/files/:id/download", h.Download)
	r.DELETE("/files/:id", h.Delete)
	return r
}

func upload(t *testing.T, r http.Handler, user, name, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path, user string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-User", user)
	if admin {
		req.Header.Set("X-Admin", "1")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadedID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data file.File `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.ID)
	return body.Data.ID
}

func TestUploadAndDownload(t *testing.T) {
	r := setup(t, 1024)

	w := upload(t, r, "u-1", "notes.txt", "", []byte("hello world"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uploadedID(t, w)
	assert.Contains(t, w.Body.String(), `"mimeType":"text/plain"`)
	assert.Contains(t, w.Body.String(), `"/api/v1/files/`+id+`/download"`)

	w = get(r, "/files/"+id+"/download", "u-1", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=notes.txt`, w.Header().Get("Content-Disposition"))
}

func TestOwnership(t *testing.T) {
	r := setup(t, 1024)
	id := uploadedID(t, upload(t, r, "u-1", "a.json", "application/json", []byte(`{}`)))

	assert.Equal(t, http.StatusNotFound, get(r, "/files/"+id, "u-2", false).Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/files/"+id+"/download", "u-2", false).Code)
	assert.Equal(t, http.StatusOK, get(r, "/files/"+id, "u-2", true).Code)

	w := get(r, "/files", "u-2", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
	req.Header.Set("X-User", "u-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/files/"+id, "u-1", false).Code)
}

func TestUploadRejections(t *testing.T) {
	r := setup(t, 16)

	w := upload(t, r, "u-1", "big.txt", "text/plain", bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "u-1", "run.sh", "application/x-sh", []byte("echo"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/files/upload", bytes.NewReader(nil))
	req.Header.Set("X-User", "u-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
