package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	conn    dbtx
	dialect *dialect
}

type sqlTx struct {
	tx *sql.Tx
	queries
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}

func (q queries) InsertImage(ctx context.Context, image *Image) (int64, error) {
	if image.UploadedAt.IsZero() {
		image.UploadedAt = time.Now()
	}
	exifData := image.Exif
	if exifData == nil {
		exifData = map[string]string{}
	}
	encoded, err := json.Marshal(exifData)
	if err != nil {
		return 0, fmt.Errorf("failed to encode exif data: %w", err)
	}

	result, err := q.conn.ExecContext(ctx,
		"INSERT INTO images (user_id, original_filename, storage_path, thumbnail_path, mime_type, size, resolution, exif_data, uploaded_at)"+
			" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		image.UserID, image.OriginalFilename, image.StoragePath, image.ThumbnailPath,
		image.MimeType, image.Size, image.Resolution, string(encoded), image.UploadedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to insert image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get image ID: %w", err)
	}
	image.ID = id
	return id, nil
}

// FindOrCreateTag returns the tag with exactly this name, creating it when absent.
// A concurrent creator of the same name is absorbed by the unique constraint.
func (q queries) FindOrCreateTag(ctx context.Context, name string) (*Tag, error) {
	tag, err := q.findTag(ctx, name)
	if err != nil || tag != nil {
		return tag, err
	}

	if _, err := q.conn.ExecContext(ctx, q.dialect.insertIgnore+" INTO tags (name) VALUES (?)", name); err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	tag, err = q.findTag(ctx, name)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, fmt.Errorf("tag %q missing after insert", name)
	}
	return tag, nil
}

func (q queries) findTag(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	err := q.conn.QueryRowContext(ctx, "SELECT id, name FROM tags WHERE name = ?", name).Scan(&tag.ID, &tag.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag %q: %w", name, err)
	}
	return &tag, nil
}

// AttachTag is idempotent: the (image_id, tag_id) primary key swallows repeats.
func (q queries) AttachTag(ctx context.Context, imageID, tagID int64) error {
	_, err := q.conn.ExecContext(ctx,
		q.dialect.insertIgnore+" INTO image_tags (image_id, tag_id) VALUES (?, ?)", imageID, tagID)
	if err != nil {
		return fmt.Errorf("failed to attach tag %d to image %d: %w", tagID, imageID, err)
	}
	return nil
}

func (q queries) UpdateImageFile(ctx context.Context, imageID int64, resolution string, size int64) error {
	result, err := q.conn.ExecContext(ctx,
		"UPDATE images SET resolution = ?, size = ? WHERE id = ?", resolution, size, imageID)
	if err != nil {
		return fmt.Errorf("failed to update image %d: %w", imageID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update image %d: %w", imageID, sql.ErrNoRows)
	}
	return nil
}

func (q queries) DeleteImage(ctx context.Context, imageID int64) error {
	if _, err := q.conn.ExecContext(ctx, "DELETE FROM image_tags WHERE image_id = ?", imageID); err != nil {
		return fmt.Errorf("failed to delete tag associations of image %d: %w", imageID, err)
	}
	if _, err := q.conn.ExecContext(ctx, "DELETE FROM images WHERE id = ?", imageID); err != nil {
		return fmt.Errorf("failed to delete image %d: %w", imageID, err)
	}
	return nil
}
