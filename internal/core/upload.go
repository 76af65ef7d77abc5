package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jo-hoe/gophotos/internal/backend/commands"
	"github.com/jo-hoe/gophotos/internal/backend/database"
	"github.com/jo-hoe/gophotos/internal/backend/geocoder"
	"github.com/jo-hoe/gophotos/internal/backend/metadata"
	"github.com/jo-hoe/gophotos/internal/backend/metrics"
	"github.com/jo-hoe/gophotos/internal/backend/storage"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// column widths of original_filename and mime_type
const (
	maxFilenameLength = 255
	maxMimeTypeLength = 50
)

type UploadRequest struct {
	Filename string
	MimeType string
	Data     []byte
}

// allowedExtension returns the lower-cased extension when it is on the allow-list.
func allowedExtension(filename string) (string, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", false
	}
	ext := strings.ToLower(filename[idx+1:])
	return ext, allowedExtensions[ext]
}

// baseName strips any client-side directory components from an uploaded file name
// and shortens the stem so the name fits its column; the extension is kept.
func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if utf8.RuneCountInString(name) <= maxFilenameLength {
		return name
	}
	ext := path.Ext(name)
	if utf8.RuneCountInString(ext) >= maxFilenameLength {
		return truncateRunes(name, maxFilenameLength)
	}
	stem := strings.TrimSuffix(name, ext)
	return truncateRunes(stem, maxFilenameLength-utf8.RuneCountInString(ext)) + ext
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// detectMimeType sniffs the content and only falls back to the client's
// declared type when sniffing finds nothing specific.
func detectMimeType(data []byte, declared string) string {
	detected := http.DetectContentType(data)
	if detected == "application/octet-stream" && declared != "" {
		return truncateRunes(declared, maxMimeTypeLength)
	}
	return detected
}

// checkPixelBudget rejects images whose header declares more pixels than the
// configured budget. Unreadable headers pass; the full decode reports them.
func (service *CoreService) checkPixelBudget(data []byte) error {
	width, height, err := commands.DecodeDimensions(data)
	if err != nil {
		return nil
	}
	if pixels := int64(width) * int64(height); pixels > service.config.MaxImagePixels {
		return fmt.Errorf("%w: image is %dx%d, exceeding the limit of %d pixels",
			ErrValidation, width, height, service.config.MaxImagePixels)
	}
	return nil
}

// UploadImage stores the original, derives metadata, thumbnail and auto-tags and
// records everything in one transaction. Any failure after the first write rolls
// the transaction back and removes every file written so far.
func (service *CoreService) UploadImage(ctx context.Context, userID int64, request UploadRequest) (imageID int64, err error) {
	start := time.Now()

	ext, ok := allowedExtension(request.Filename)
	if !ok {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return 0, fmt.Errorf("%w: file type not allowed: %q", ErrValidation, request.Filename)
	}
	if len(request.Data) == 0 {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return 0, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if err := service.checkPixelBudget(request.Data); err != nil {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return 0, err
	}

	uniqueName := uuid.NewString() + "." + ext
	userDir := storage.UserDir(userID)
	originalKey := storage.Key(userDir, uniqueName)
	thumbnailKey := storage.Key(userDir, storage.ThumbnailName(uniqueName))

	var written []string
	var tx database.Tx
	defer func() {
		metrics.UploadDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.Uploads.WithLabelValues("success").Inc()
			return
		}
		metrics.Uploads.WithLabelValues("failed").Inc()
		if tx != nil {
			if rerr := tx.Rollback(); rerr != nil {
				slog.Error("UploadImage: rollback failed", "user_id", userID, "error", rerr)
			}
		}
		// a fresh context so cleanup still runs when the request was cancelled
		cleanupCtx := context.WithoutCancel(ctx)
		for _, key := range written {
			if rerr := service.storage.Remove(cleanupCtx, key); rerr != nil {
				slog.Error("UploadImage: failed to remove file after error", "key", key, "error", rerr)
			}
		}
		slog.Error("UploadImage: upload failed", "user_id", userID, "filename", request.Filename, "error", err)
		err = fmt.Errorf("%w: %w", ErrProcessing, err)
	}()

	if err = service.storage.Save(ctx, originalKey, request.Data); err != nil {
		return 0, fmt.Errorf("failed to store original: %w", err)
	}
	written = append(written, originalKey)

	md := metadata.Extract(request.Data)
	tagNames := []string{}
	if md.CapturePeriod != "" {
		tagNames = append(tagNames, md.CapturePeriod)
	}
	if md.GPS != nil {
		place, found := service.geocoder.ReverseGeocode(ctx, md.GPS.Latitude, md.GPS.Longitude)
		if found {
			tagNames = append(tagNames, place)
		} else {
			md.Exif[geocoder.SyntheticLatitudeKey] = strconv.FormatFloat(md.GPS.Latitude, 'f', -1, 64)
			md.Exif[geocoder.SyntheticLongitudeKey] = strconv.FormatFloat(md.GPS.Longitude, 'f', -1, 64)
		}
	}

	decoded, err := commands.DecodeImage(request.Data)
	if err != nil {
		return 0, err
	}
	thumb, err := service.thumbnail(decoded)
	if err != nil {
		return 0, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	thumbData, err := commands.EncodeImage(thumb, ext)
	if err != nil {
		return 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err = service.storage.Save(ctx, thumbnailKey, thumbData); err != nil {
		return 0, fmt.Errorf("failed to store thumbnail: %w", err)
	}
	written = append(written, thumbnailKey)

	mimeType := detectMimeType(request.Data, request.MimeType)

	tx, err = service.databaseService.Begin(ctx)
	if err != nil {
		return 0, err
	}
	imageID, err = tx.InsertImage(ctx, &database.Image{
		UserID:           userID,
		OriginalFilename: baseName(request.Filename),
		StoragePath:      originalKey,
		ThumbnailPath:    thumbnailKey,
		MimeType:         mimeType,
		Size:             int64(len(request.Data)),
		Resolution:       commands.Resolution(decoded),
		Exif:             md.Exif,
	})
	if err != nil {
		return 0, err
	}

	for _, name := range tagNames {
		tag, terr := tx.FindOrCreateTag(ctx, name)
		if terr != nil {
			return 0, terr
		}
		if err = tx.AttachTag(ctx, imageID, tag.ID); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upload: %w", err)
	}
	tx = nil

	slog.Info("UploadImage: image stored",
		"user_id", userID,
		"image_id", imageID,
		"tags", tagNames,
		"duration_ms", time.Since(start).Milliseconds())
	return imageID, nil
}
