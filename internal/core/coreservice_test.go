package core

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/gophotos/internal/backend/commands"
	"github.com/jo-hoe/gophotos/internal/backend/database"
	"github.com/jo-hoe/gophotos/internal/backend/storage"
)

func newTestCoreService(t *testing.T, mutate ...func(*ServiceConfig)) (*CoreService, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "uploads")
	cfg := &ServiceConfig{
		Database: Database{
			Type:             "sqlite",
			ConnectionString: ":memory:",
		},
		Storage: Storage{Type: "local", Root: root},
		Auth:    Auth{JWTSecret: "test-secret"},
	}
	for _, m := range mutate {
		m(cfg)
	}
	cfg.applyDefaults()

	svc, err := NewCoreService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, root
}

func newTestUser(t *testing.T, svc *CoreService, username string) int64 {
	t.Helper()
	id, err := svc.Register(context.Background(), username, username+"@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register(%s) error: %v", username, err)
	}
	return id
}

// countFiles returns the number of regular files below root.
func countFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	return count
}

func readDimensions(t *testing.T, svc *CoreService, key string) string {
	t.Helper()
	data, err := svc.Storage().Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read(%s) error: %v", key, err)
	}
	img, err := commands.DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage(%s) error: %v", key, err)
	}
	return commands.Resolution(img)
}

func TestNewCoreService_UnsupportedStorage(t *testing.T) {
	cfg := &ServiceConfig{
		Database: Database{Type: "sqlite", ConnectionString: ":memory:"},
		Storage:  Storage{Type: "ftp"},
		Auth:     Auth{JWTSecret: "secret"},
	}
	if _, err := NewCoreService(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
}

func TestNewCoreService_GeocoderDisabledWithoutKey(t *testing.T) {
	svc, _ := newTestCoreService(t)
	if svc.geocoder.Enabled() {
		t.Fatalf("expected geocoder to be disabled without api key")
	}
}

var errStepFailed = errors.New("step failed")

// failingDatabase hands out transactions that fail at the named step:
// "begin", "tag" or "commit".
type failingDatabase struct {
	database.DatabaseService
	failOn string
}

func (d *failingDatabase) Begin(ctx context.Context) (database.Tx, error) {
	if d.failOn == "begin" {
		return nil, errStepFailed
	}
	tx, err := d.DatabaseService.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, failOn: d.failOn}, nil
}

type failingTx struct {
	database.Tx
	failOn string
}

func (tx *failingTx) FindOrCreateTag(ctx context.Context, name string) (*database.Tag, error) {
	if tx.failOn == "tag" {
		return nil, errStepFailed
	}
	return tx.Tx.FindOrCreateTag(ctx, name)
}

func (tx *failingTx) Commit() error {
	if tx.failOn == "commit" {
		return errStepFailed
	}
	return tx.Tx.Commit()
}

// failingThumbnailStorage refuses to save thumbnails.
type failingThumbnailStorage struct {
	storage.Storage
}

func (s *failingThumbnailStorage) Save(ctx context.Context, key string, data []byte) error {
	if strings.HasPrefix(path.Base(key), "thumb_") {
		return errStepFailed
	}
	return s.Storage.Save(ctx, key, data)
}

func readFile(t *testing.T, svc *CoreService, key string) []byte {
	t.Helper()
	data, err := svc.Storage().Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read(%s) error: %v", key, err)
	}
	return data
}
