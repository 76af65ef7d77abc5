package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/jo-hoe/gophotos/internal/backend/commands"
	"github.com/jo-hoe/gophotos/internal/backend/commandstructure"
	"github.com/jo-hoe/gophotos/internal/backend/database"
	"github.com/jo-hoe/gophotos/internal/backend/storage"
)

const maxTagNameLength = 50

// ListImages returns the user's images most-recent-first, optionally only those carrying exactly tag.
func (service *CoreService) ListImages(ctx context.Context, userID int64, tag string) ([]*database.Image, error) {
	images, err := service.databaseService.ListImages(ctx, userID, strings.TrimSpace(tag), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return images, nil
}

// GetImage reports images owned by other users as not found.
func (service *CoreService) GetImage(ctx context.Context, userID, imageID int64) (*database.Image, error) {
	image, err := service.databaseService.GetImage(ctx, userID, imageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if image == nil {
		return nil, fmt.Errorf("%w: image %d", ErrNotFound, imageID)
	}
	return image, nil
}

func (service *CoreService) ListTags(ctx context.Context) ([]*database.Tag, error) {
	tags, err := service.databaseService.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return tags, nil
}

// AddTag finds or creates the tag and attaches it; attaching twice is a no-op.
func (service *CoreService) AddTag(ctx context.Context, userID, imageID int64, name string) (tag *database.Tag, err error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxTagNameLength {
		return nil, fmt.Errorf("%w: tag name must be between 1 and %d characters", ErrValidation, maxTagNameLength)
	}
	if _, err := service.GetImage(ctx, userID, imageID); err != nil {
		return nil, err
	}

	tx, err := service.databaseService.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tag, err = tx.FindOrCreateTag(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if err = tx.AttachTag(ctx, imageID, tag.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	slog.Debug("AddTag: tag attached", "image_id", imageID, "tag", tag.Name)
	return tag, nil
}

// RemoveTag detaches the tag. An existing tag that is not attached is not an error.
func (service *CoreService) RemoveTag(ctx context.Context, userID, imageID, tagID int64) error {
	if _, err := service.GetImage(ctx, userID, imageID); err != nil {
		return err
	}
	tag, err := service.databaseService.GetTagByID(ctx, tagID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if tag == nil {
		return fmt.Errorf("%w: tag %d", ErrNotFound, tagID)
	}
	if err := service.databaseService.DetachTag(ctx, imageID, tagID); err != nil {
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return nil
}

type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// EditRequest deltas range over [-100, 100]; zero means unchanged.
type EditRequest struct {
	Crop       *CropRect
	Brightness float64
	Contrast   float64
	Saturation float64
}

func (r EditRequest) hasAdjustments() bool {
	return r.Brightness != 0 || r.Contrast != 0 || r.Saturation != 0
}

func (r EditRequest) validate() error {
	if r.Crop == nil && !r.hasAdjustments() {
		return fmt.Errorf("%w: nothing to edit", ErrValidation)
	}
	for name, v := range map[string]float64{"brightness": r.Brightness, "contrast": r.Contrast, "saturation": r.Saturation} {
		if v < -100 || v > 100 {
			return fmt.Errorf("%w: %s must be between -100 and 100", ErrValidation, name)
		}
	}
	if r.Crop != nil && (r.Crop.X < 0 || r.Crop.Y < 0 || r.Crop.Width <= 0 || r.Crop.Height <= 0) {
		return fmt.Errorf("%w: crop rectangle must have a non-negative origin and positive size", ErrValidation)
	}
	return nil
}

func (r EditRequest) commandConfigs() []commandstructure.CommandConfig {
	var configs []commandstructure.CommandConfig
	if r.Crop != nil {
		configs = append(configs, commandstructure.CommandConfig{
			Name: commands.CropCommandName,
			Params: map[string]any{
				"x": r.Crop.X, "y": r.Crop.Y, "width": r.Crop.Width, "height": r.Crop.Height,
			},
		})
	}
	if r.hasAdjustments() {
		configs = append(configs, commandstructure.CommandConfig{
			Name: commands.AdjustCommandName,
			Params: map[string]any{
				"brightness": r.Brightness, "contrast": r.Contrast, "saturation": r.Saturation,
			},
		})
	}
	return configs
}

// EditImage rewrites the original in place, re-derives the thumbnail and updates
// resolution and size. The metadata update commits only after both files are
// written; on any later failure both files get their previous bytes back.
func (service *CoreService) EditImage(ctx context.Context, userID, imageID int64, request EditRequest) (edited *database.Image, err error) {
	if err := request.validate(); err != nil {
		return nil, err
	}
	image, err := service.GetImage(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}

	previous, err := service.storage.Read(ctx, image.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if err := service.checkPixelBudget(previous); err != nil {
		return nil, err
	}
	decoded, err := commands.DecodeImage(previous)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if request.Crop != nil {
		b := decoded.Bounds()
		if request.Crop.X+request.Crop.Width > b.Dx() || request.Crop.Y+request.Crop.Height > b.Dy() {
			return nil, fmt.Errorf("%w: crop rectangle exceeds image size %dx%d", ErrValidation, b.Dx(), b.Dy())
		}
	}

	result, err := commandstructure.ExecuteCommands(decoded, request.commandConfigs())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	ext := path.Ext(image.StoragePath)
	originalData, err := commands.EncodeImage(result, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	thumb, err := service.thumbnail(result)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	thumbData, err := commands.EncodeImage(thumb, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	resolution := commands.Resolution(result)
	size := int64(len(originalData))

	// a missing thumbnail is regenerated by the edit, so there is nothing to restore
	previousThumb, err := service.storage.Read(ctx, image.ThumbnailPath)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	tx, err := service.databaseService.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	var originalReplaced, thumbnailReplaced bool
	defer func() {
		if err == nil {
			return
		}
		_ = tx.Rollback()
		restoreCtx := context.WithoutCancel(ctx)
		if originalReplaced {
			if rerr := service.storage.Save(restoreCtx, image.StoragePath, previous); rerr != nil {
				slog.Error("EditImage: failed to restore original", "image_id", imageID, "error", rerr)
			}
		}
		if thumbnailReplaced {
			if rerr := service.restoreThumbnail(restoreCtx, image.ThumbnailPath, previousThumb); rerr != nil {
				slog.Error("EditImage: failed to restore thumbnail", "image_id", imageID, "error", rerr)
			}
		}
		err = fmt.Errorf("%w: %w", ErrProcessing, err)
	}()

	if err = tx.UpdateImageFile(ctx, imageID, resolution, size); err != nil {
		return nil, err
	}
	if err = service.storage.Save(ctx, image.StoragePath, originalData); err != nil {
		return nil, err
	}
	originalReplaced = true
	if err = service.storage.Save(ctx, image.ThumbnailPath, thumbData); err != nil {
		return nil, err
	}
	thumbnailReplaced = true
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	image.Resolution = resolution
	image.Size = size
	slog.Info("EditImage: image updated", "image_id", imageID, "resolution", resolution, "size_bytes", size)
	return image, nil
}

// restoreThumbnail puts back the thumbnail bytes from before an edit. A nil
// previous means there was no thumbnail, so the edited one is removed.
func (service *CoreService) restoreThumbnail(ctx context.Context, key string, previous []byte) error {
	if previous == nil {
		return service.storage.Remove(ctx, key)
	}
	return service.storage.Save(ctx, key, previous)
}

// DeleteImage commits the record deletion first and removes both files afterwards.
// The files are not removed before the commit, so a failed removal leaves an
// orphaned file, never a record pointing at a missing one.
// Missing files are ignored and other removal errors are only logged.
func (service *CoreService) DeleteImage(ctx context.Context, userID, imageID int64) (err error) {
	image, err := service.GetImage(ctx, userID, imageID)
	if err != nil {
		return err
	}

	tx, err := service.databaseService.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if err := tx.DeleteImage(ctx, imageID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	var errs []error
	for _, key := range []string{image.StoragePath, image.ThumbnailPath} {
		if rerr := service.storage.Remove(ctx, key); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	if len(errs) > 0 {
		slog.Warn("DeleteImage: record deleted but files remain", "image_id", imageID, "error", errors.Join(errs...))
	}
	slog.Info("DeleteImage: image deleted", "image_id", imageID)
	return nil
}
