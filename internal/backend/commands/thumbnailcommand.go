package commands

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/jo-hoe/gophotos/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

const ThumbnailCommandName = "ThumbnailCommand"

// ThumbnailParams bounds the thumbnail; the image is fitted inside, never enlarged.
type ThumbnailParams struct {
	Width  int
	Height int
}

// NewThumbnailParamsFromMap creates ThumbnailParams from a generic map
func NewThumbnailParamsFromMap(params map[string]any) (*ThumbnailParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"width", "height"}); err != nil {
		return nil, err
	}

	width := commandstructure.GetIntParam(params, "width", 0)
	height := commandstructure.GetIntParam(params, "height", 0)
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	if height <= 0 {
		return nil, fmt.Errorf("height must be positive, got %d", height)
	}

	return &ThumbnailParams{Width: width, Height: height}, nil
}

type ThumbnailCommand struct {
	name   string
	params *ThumbnailParams
}

func NewThumbnailCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewThumbnailParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &ThumbnailCommand{name: ThumbnailCommandName, params: typedParams}, nil
}

func (c *ThumbnailCommand) Name() string {
	return c.name
}

func (c *ThumbnailCommand) GetParams() *ThumbnailParams {
	return c.params
}

// Execute returns the image unchanged when it already fits the bound.
func (c *ThumbnailCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	originalWidth, originalHeight := bounds.Dx(), bounds.Dy()
	if originalWidth <= 0 || originalHeight <= 0 {
		return nil, fmt.Errorf("cannot create thumbnail of empty image")
	}

	if originalWidth <= c.params.Width && originalHeight <= c.params.Height {
		slog.Debug("ThumbnailCommand: image already within bounds",
			"width", originalWidth,
			"height", originalHeight)
		return img, nil
	}

	scaledWidth, scaledHeight := fitWithin(originalWidth, originalHeight, c.params.Width, c.params.Height)
	slog.Debug("ThumbnailCommand: scaling image",
		"original_width", originalWidth,
		"original_height", originalHeight,
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight)

	dst := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, nil
}

// fitWithin scales width and height by a common factor so both fit the bound.
// Neither side drops below one pixel.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	scale := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	if scale >= 1 {
		return width, height
	}
	scaledWidth := int(math.Round(float64(width) * scale))
	scaledHeight := int(math.Round(float64(height) * scale))
	return max(1, min(scaledWidth, maxWidth)), max(1, min(scaledHeight, maxHeight))
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ThumbnailCommandName, NewThumbnailCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ThumbnailCommandName, err))
	}
}
