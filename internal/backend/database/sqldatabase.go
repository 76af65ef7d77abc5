package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// sqlDatabase implements DatabaseService on top of database/sql for every dialect.
type sqlDatabase struct {
	db               *sql.DB
	connectionString string
	dialect          dialect
}

func newSQLDatabase(db *sql.DB, connectionString string, d dialect) *sqlDatabase {
	return &sqlDatabase{
		db:               db,
		connectionString: connectionString,
		dialect:          d,
	}
}

func (s *sqlDatabase) CreateDatabase() (*sql.DB, error) {
	for _, statement := range s.dialect.schema {
		if _, err := s.db.Exec(statement); err != nil {
			return nil, fmt.Errorf("failed to apply %s schema: %w", s.dialect.name, err)
		}
	}
	return s.db, nil
}

func (s *sqlDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlDatabase) DoesDatabaseExist() bool {
	err := s.db.Ping()
	return err == nil
}

func (s *sqlDatabase) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx, queries: queries{conn: tx, dialect: &s.dialect}}, nil
}

func (s *sqlDatabase) CreateUser(ctx context.Context, user *User) (int64, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.Email, user.PasswordHash, user.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user ID: %w", err)
	}
	user.ID = id
	return id, nil
}

func (s *sqlDatabase) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *sqlDatabase) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", email)
}

// getUser looks a user up by one of the unique columns; column is never user input.
func (s *sqlDatabase) getUser(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+column+" = ?", value)

	var user User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	user.CreatedAt = time.Unix(0, createdAt)
	return &user, nil
}

const imageColumns = "i.id, i.user_id, i.original_filename, i.storage_path, i.thumbnail_path, " +
	"i.mime_type, i.size, i.resolution, i.exif_data, i.uploaded_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner, extra ...any) (*Image, error) {
	var img Image
	var exifData string
	var uploadedAt int64
	dest := []any{
		&img.ID, &img.UserID, &img.OriginalFilename, &img.StoragePath, &img.ThumbnailPath,
		&img.MimeType, &img.Size, &img.Resolution, &exifData, &uploadedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	img.UploadedAt = time.Unix(0, uploadedAt)
	img.Exif = map[string]string{}
	if exifData != "" {
		if err := json.Unmarshal([]byte(exifData), &img.Exif); err != nil {
			return nil, fmt.Errorf("failed to decode exif data of image %d: %w", img.ID, err)
		}
	}
	return &img, nil
}

func (s *sqlDatabase) GetImage(ctx context.Context, userID, imageID int64) (*Image, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+imageColumns+" FROM images i WHERE i.id = ? AND i.user_id = ?", imageID, userID)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if err := s.loadTags(ctx, []*Image{img}); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *sqlDatabase) ListImages(ctx context.Context, userID int64, tag string, limit int) ([]*Image, error) {
	query := "SELECT " + imageColumns + " FROM images i"
	args := []any{}
	if tag != "" {
		query += " JOIN image_tags it ON it.image_id = i.id JOIN tags t ON t.id = it.tag_id" +
			" WHERE i.user_id = ? AND t.name = ?"
		args = append(args, userID, tag)
	} else {
		query += " WHERE i.user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY i.uploaded_at DESC, i.id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	images := []*Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}

	if err := s.loadTags(ctx, images); err != nil {
		return nil, err
	}
	return images, nil
}

// Matching is case-insensitive on every engine, including MySQL's binary tag collation.
func (s *sqlDatabase) SearchImagesByTag(ctx context.Context, userID int64, keyword string) ([]*ImageMatch, error) {
	query := "SELECT " + imageColumns + ", t.name FROM images i" +
		" JOIN image_tags it ON it.image_id = i.id JOIN tags t ON t.id = it.tag_id" +
		" WHERE i.user_id = ? AND LOWER(t.name) LIKE ?" + s.dialect.likeEscape +
		" ORDER BY i.uploaded_at DESC, i.id DESC, t.name"

	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
	rows, err := s.db.QueryContext(ctx, query, userID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search images: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	matches := []*ImageMatch{}
	var images []*Image
	for rows.Next() {
		var tagName string
		img, err := scanImage(rows, &tagName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		matches = append(matches, &ImageMatch{Image: img, MatchedTag: tagName})
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}

	if err := s.loadTags(ctx, images); err != nil {
		return nil, err
	}
	return matches, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// loadTags fills Tags for every image with a single query, ordered by tag name.
func (s *sqlDatabase) loadTags(ctx context.Context, images []*Image) error {
	if len(images) == 0 {
		return nil
	}

	byID := make(map[int64][]*Image, len(images))
	args := make([]any, 0, len(images))
	for _, img := range images {
		img.Tags = []*Tag{}
		if _, seen := byID[img.ID]; !seen {
			args = append(args, img.ID)
		}
		byID[img.ID] = append(byID[img.ID], img)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	rows, err := s.db.QueryContext(ctx,
		"SELECT it.image_id, t.id, t.name FROM image_tags it JOIN tags t ON t.id = it.tag_id"+
			" WHERE it.image_id IN ("+placeholders+") ORDER BY t.name", args...)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var imageID int64
		var tag Tag
		if err := rows.Scan(&imageID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		for _, img := range byID[imageID] {
			t := tag
			img.Tags = append(img.Tags, &t)
		}
	}
	return rows.Err()
}

func (s *sqlDatabase) GetTagByID(ctx context.Context, tagID int64) (*Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM tags WHERE id = ?", tagID).Scan(&tag.ID, &tag.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

func (s *sqlDatabase) ListTags(ctx context.Context) ([]*Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	tags := []*Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}

func (s *sqlDatabase) ListUserTagNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT t.name FROM tags t JOIN image_tags it ON it.tag_id = t.id"+
			" JOIN images i ON i.id = it.image_id WHERE i.user_id = ? ORDER BY t.name", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tags: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqlDatabase) DetachTag(ctx context.Context, imageID, tagID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM image_tags WHERE image_id = ? AND tag_id = ?", imageID, tagID)
	if err != nil {
		return fmt.Errorf("failed to detach tag %d from image %d: %w", tagID, imageID, err)
	}
	return nil
}
