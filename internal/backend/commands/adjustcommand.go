package commands

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gophotos/internal/backend/commandstructure"
)

const AdjustCommandName = "AdjustCommand"

const maxAdjustDelta = 100

// AdjustParams holds deltas in [-100, 100]; each maps to the factor 1 + delta/100.
type AdjustParams struct {
	Brightness float64
	Contrast   float64
	Saturation float64
}

func NewAdjustParamsFromMap(params map[string]any) (*AdjustParams, error) {
	p := &AdjustParams{
		Brightness: commandstructure.GetFloatParam(params, "brightness", 0),
		Contrast:   commandstructure.GetFloatParam(params, "contrast", 0),
		Saturation: commandstructure.GetFloatParam(params, "saturation", 0),
	}
	for name, v := range map[string]float64{"brightness": p.Brightness, "contrast": p.Contrast, "saturation": p.Saturation} {
		if v < -maxAdjustDelta || v > maxAdjustDelta || math.IsNaN(v) {
			return nil, fmt.Errorf("%s must be between -%d and %d, got %v", name, maxAdjustDelta, maxAdjustDelta, v)
		}
	}
	return p, nil
}

// IsNoop reports whether all deltas are zero.
func (p *AdjustParams) IsNoop() bool {
	return p.Brightness == 0 && p.Contrast == 0 && p.Saturation == 0
}

// AdjustCommand applies brightness, contrast and saturation changes in that order.
type AdjustCommand struct {
	name   string
	params *AdjustParams
}

func NewAdjustCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewAdjustParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &AdjustCommand{name: AdjustCommandName, params: typedParams}, nil
}

func (c *AdjustCommand) Name() string {
	return c.name
}

func (c *AdjustCommand) GetParams() *AdjustParams {
	return c.params
}

func (c *AdjustCommand) Execute(img image.Image) (image.Image, error) {
	if c.params.IsNoop() {
		return img, nil
	}

	slog.Debug("AdjustCommand: adjusting image",
		"brightness", c.params.Brightness,
		"contrast", c.params.Contrast,
		"saturation", c.params.Saturation)

	out := img
	if c.params.Brightness != 0 {
		f := factor(c.params.Brightness)
		out = imaging.AdjustFunc(out, func(px color.NRGBA) color.NRGBA {
			return color.NRGBA{R: clamp8(float64(px.R) * f), G: clamp8(float64(px.G) * f), B: clamp8(float64(px.B) * f), A: px.A}
		})
	}
	if c.params.Contrast != 0 {
		f := factor(c.params.Contrast)
		mean := meanLuminance(out)
		out = imaging.AdjustFunc(out, func(px color.NRGBA) color.NRGBA {
			blend := func(v uint8) uint8 { return clamp8(mean + f*(float64(v)-mean)) }
			return color.NRGBA{R: blend(px.R), G: blend(px.G), B: blend(px.B), A: px.A}
		})
	}
	if c.params.Saturation != 0 {
		f := factor(c.params.Saturation)
		out = imaging.AdjustFunc(out, func(px color.NRGBA) color.NRGBA {
			grey := luminance(px.R, px.G, px.B)
			blend := func(v uint8) uint8 { return clamp8(grey + f*(float64(v)-grey)) }
			return color.NRGBA{R: blend(px.R), G: blend(px.G), B: blend(px.B), A: px.A}
		})
	}
	return out, nil
}

func factor(delta float64) float64 {
	return 1 + delta/100
}

func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// meanLuminance averages the luminance of every pixel, summing rows in parallel.
func meanLuminance(img image.Image) float64 {
	src, ok := img.(*image.NRGBA)
	if !ok {
		src = imaging.Clone(img)
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	rowSums := make([]float64, h)
	parallelFor(h, func(y int) {
		sum := 0.0
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			sum += luminance(row[i], row[i+1], row[i+2])
		}
		rowSums[y] = sum
	})

	total := 0.0
	for _, s := range rowSums {
		total += s
	}
	return total / float64(w*h)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(AdjustCommandName, NewAdjustCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", AdjustCommandName, err))
	}
}
