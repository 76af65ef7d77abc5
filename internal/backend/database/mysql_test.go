package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockMySQL(t *testing.T) (*sqlDatabase, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newSQLDatabase(db, "mock", mysqlDialect), mock
}

func TestMySQL_CreateDatabase(t *testing.T) {
	ds, mock := newMockMySQL(t)

	for _, table := range []string{"users", "images", "tags", "image_tags"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table + " ").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	_, err := ds.CreateDatabase()
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_FindOrCreateAndAttachTag(t *testing.T) {
	ds, mock := newMockMySQL(t)
	ctx := context.Background()

	selectTag := regexp.QuoteMeta("SELECT id, name FROM tags WHERE name = ?")
	mock.ExpectBegin()
	mock.ExpectQuery(selectTag).WithArgs("2024年10月").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO tags (name) VALUES (?)")).WithArgs("2024年10月").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(selectTag).WithArgs("2024年10月").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(7, "2024年10月"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO image_tags (image_id, tag_id) VALUES (?, ?)")).
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := ds.Begin(ctx)
	require.NoError(t, err)

	tag, err := tx.FindOrCreateTag(ctx, "2024年10月")
	require.NoError(t, err)
	assert.Equal(t, int64(7), tag.ID)
	assert.Equal(t, "2024年10月", tag.Name)

	require.NoError(t, tx.AttachTag(ctx, 3, tag.ID))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_FindOrCreateTagReusesExisting(t *testing.T) {
	ds, mock := newMockMySQL(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM tags WHERE name = ?")).WithArgs("杭州").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "杭州"))
	mock.ExpectRollback()

	tx, err := ds.Begin(ctx)
	require.NoError(t, err)
	tag, err := tx.FindOrCreateTag(ctx, "杭州")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tag.ID)
	require.NoError(t, tx.Rollback())

	// no INSERT was expected, so an unexpected one would fail here
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_InsertImageFailureRollsBack(t *testing.T) {
	ds, mock := newMockMySQL(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO images").WillReturnError(errors.New("Duplicate entry"))
	mock.ExpectRollback()

	tx, err := ds.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.InsertImage(ctx, &Image{UserID: 1, StoragePath: "user_1/a.png", ThumbnailPath: "user_1/thumb_a.png"})
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_SearchUsesDefaultLikeEscape(t *testing.T) {
	ds, mock := newMockMySQL(t)

	mock.ExpectQuery(`LOWER\(t\.name\) LIKE \? ORDER BY`).
		WithArgs(int64(1), `%a\_b%`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "original_filename", "storage_path", "thumbnail_path",
			"mime_type", "size", "resolution", "exif_data", "uploaded_at", "name",
		}))

	matches, err := ds.SearchImagesByTag(context.Background(), 1, "a_b")
	require.NoError(t, err)
	assert.Empty(t, matches)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_SearchIgnoresTagCase(t *testing.T) {
	ds, mock := newMockMySQL(t)

	// tags.name uses a binary collation, so both sides are lower-cased
	mock.ExpectQuery(`WHERE i\.user_id = \? AND LOWER\(t\.name\) LIKE \?`).
		WithArgs(int64(1), "%paris%").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "original_filename", "storage_path", "thumbnail_path",
			"mime_type", "size", "resolution", "exif_data", "uploaded_at", "name",
		}).AddRow(4, 1, "eiffel.jpg", "user_1/a.jpg", "user_1/thumb_a.jpg",
			"image/jpeg", 10, "10x10", "{}", int64(0), "Paris"))
	mock.ExpectQuery("SELECT it.image_id, t.id, t.name FROM image_tags").
		WillReturnRows(sqlmock.NewRows([]string{"image_id", "id", "name"}).AddRow(4, 9, "Paris"))

	matches, err := ds.SearchImagesByTag(context.Background(), 1, "PARIS")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Paris", matches[0].MatchedTag)
	require.NoError(t, mock.ExpectationsWereMet())
}
