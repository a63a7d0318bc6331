// internal/repository/postgres/file_repo.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskhub-service/internal/domain/file"
	xerrors "taskhub-service/internal/pkg/errors"
)

type FileRepository struct {
	db DBTX
}

func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, filename, original_name, mime_type, size, url, user_id, created_at`

func scanFile(row interface{ Scan(...any) error }) (*file.File, error) {
	var f file.File
	if err := row.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.MimeType, &f.Size, &f.URL, &f.UserID, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Create(ctx context.Context, f *file.File) error {
	query := `
		INSERT INTO files (id, filename, original_name, mime_type, size, url, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, f.ID, f.Filename, f.OriginalName, f.MimeType, f.Size, f.URL, f.UserID).
		Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*file.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return f, nil
}

func (r *FileRepository) List(ctx context.Context, userID string) ([]*file.File, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := []*file.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
