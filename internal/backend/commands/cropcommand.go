package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gophotos/internal/backend/commandstructure"
)

const CropCommandName = "CropCommand"

// CropParams is a rectangle relative to the image's top-left corner
type CropParams struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewCropParamsFromMap creates CropParams from a generic map
func NewCropParamsFromMap(params map[string]any) (*CropParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"x", "y", "width", "height"}); err != nil {
		return nil, err
	}

	p := &CropParams{
		X:      commandstructure.GetIntParam(params, "x", 0),
		Y:      commandstructure.GetIntParam(params, "y", 0),
		Width:  commandstructure.GetIntParam(params, "width", 0),
		Height: commandstructure.GetIntParam(params, "height", 0),
	}
	if p.X < 0 || p.Y < 0 {
		return nil, fmt.Errorf("crop origin must not be negative, got (%d,%d)", p.X, p.Y)
	}
	if p.Width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", p.Width)
	}
	if p.Height <= 0 {
		return nil, fmt.Errorf("height must be positive, got %d", p.Height)
	}
	return p, nil
}

// CropCommand cuts a rectangle out of the image
type CropCommand struct {
	name   string
	params *CropParams
}

// NewCropCommand creates a new crop command from configuration parameters
func NewCropCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewCropParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &CropCommand{
		name:   CropCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *CropCommand) Name() string {
	return c.name
}

// Execute crops the configured rectangle, which must lie inside the image
func (c *CropCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	rect := image.Rect(c.params.X, c.params.Y, c.params.X+c.params.Width, c.params.Y+c.params.Height).
		Add(bounds.Min)

	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop rectangle %dx%d at (%d,%d) exceeds image size %dx%d",
			c.params.Width, c.params.Height, c.params.X, c.params.Y, bounds.Dx(), bounds.Dy())
	}

	slog.Debug("CropCommand: cropping image",
		"crop_x", c.params.X,
		"crop_y", c.params.Y,
		"crop_width", c.params.Width,
		"crop_height", c.params.Height)

	return imaging.Crop(img, rect), nil
}

// GetParams returns the typed parameters
func (c *CropCommand) GetParams() *CropParams {
	return c.params
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register(CropCommandName, NewCropCommand); err != nil {
		panic(fmt.Sprintf("failed to register CropCommand: %v", err))
	}
}
