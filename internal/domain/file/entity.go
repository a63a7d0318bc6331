// internal/domain/file/entity.go
package file

import "time"

// DefaultMaxSize is the upload limit when none is configured.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// AllowedMimeTypes lists the content types accepted on upload.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg":       true,
	"image/png":        true,
	"image/gif":        true,
	"image/webp":       true,
	"application/pdf":  true,
	"text/plain":       true,
	"application/json": true,
}

// File is the metadata of a stored upload. Filename is the blob key.
type File struct {
	ID           string    `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"`
	OriginalName string    `json:"originalName" db:"original_name"`
	MimeType     string    `json:"mimeType" db:"mime_type"`
	Size         int64     `json:"size" db:"size"`
	URL          string    `json:"url" db:"url"`
	UserID       string    `json:"userId" db:"user_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
