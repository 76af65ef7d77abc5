package database

import (
	"context"
	"database/sql"
)

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// Begin opens a transaction used for writes that must land together,
	// e.g. an image row plus its initial tag associations.
	Begin(ctx context.Context) (Tx, error)

	CreateUser(ctx context.Context, user *User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetImage returns the image with its tags, or nil if it does not exist for the given owner.
	GetImage(ctx context.Context, userID, imageID int64) (*Image, error)
	// ListImages returns the owner's images most-recent-first. A non-empty tag restricts
	// the result to images associated with exactly that tag name. limit <= 0 means no limit.
	ListImages(ctx context.Context, userID int64, tag string, limit int) ([]*Image, error)
	// SearchImagesByTag returns the owner's images having a tag whose name contains keyword.
	SearchImagesByTag(ctx context.Context, userID int64, keyword string) ([]*ImageMatch, error)

	GetTagByID(ctx context.Context, tagID int64) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)
	ListUserTagNames(ctx context.Context, userID int64) ([]string, error)
	// DetachTag removes the association; a missing association is not an error.
	DetachTag(ctx context.Context, imageID, tagID int64) error
}

// Tx is the write side used inside a single request. Callers must end it with
// exactly one of Commit or Rollback.
type Tx interface {
	InsertImage(ctx context.Context, image *Image) (int64, error)
	FindOrCreateTag(ctx context.Context, name string) (*Tag, error)
	AttachTag(ctx context.Context, imageID, tagID int64) error
	UpdateImageFile(ctx context.Context, imageID int64, resolution string, size int64) error
	DeleteImage(ctx context.Context, imageID int64) error

	Commit() error
	Rollback() error
}
