package commands

import (
	"image"
	"image/color"
	"testing"

	"github.com/jo-hoe/gophotos/internal/backend/commandstructure"
	"github.com/jo-hoe/gophotos/internal/testutil"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDefaultRegistry_HasCommands(t *testing.T) {
	for _, name := range []string{ThumbnailCommandName, CropCommandName, AdjustCommandName} {
		if !commandstructure.DefaultRegistry.IsRegistered(name) {
			t.Errorf("Expected %s to be registered in DefaultRegistry", name)
		}
	}
}

func TestThumbnailCommand_Dimensions(t *testing.T) {
	tests := []struct {
		name                  string
		width, height         int
		wantWidth, wantHeight int
	}{
		{name: "landscape", width: 1600, height: 1200, wantWidth: 400, wantHeight: 300},
		{name: "portrait", width: 600, height: 1200, wantWidth: 200, wantHeight: 400},
		{name: "square", width: 800, height: 800, wantWidth: 400, wantHeight: 400},
		{name: "already small", width: 120, height: 80, wantWidth: 120, wantHeight: 80},
		{name: "exactly at bound", width: 400, height: 400, wantWidth: 400, wantHeight: 400},
		{name: "extreme panorama", width: 4000, height: 3, wantWidth: 400, wantHeight: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewThumbnailCommand(map[string]any{"width": 400, "height": 400})
			if err != nil {
				t.Fatalf("NewThumbnailCommand error: %v", err)
			}
			out, err := cmd.Execute(testutil.Pattern(tt.width, tt.height))
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if out.Bounds().Dx() != tt.wantWidth || out.Bounds().Dy() != tt.wantHeight {
				t.Fatalf("got %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestNewThumbnailCommand_InvalidParams(t *testing.T) {
	for _, params := range []map[string]any{
		{},
		{"width": 400},
		{"width": 0, "height": 400},
		{"width": 400, "height": -1},
	} {
		if _, err := NewThumbnailCommand(params); err == nil {
			t.Errorf("Expected error for params %v", params)
		}
	}
}

func TestCropCommand(t *testing.T) {
	src := testutil.Pattern(100, 80)

	cmd, err := NewCropCommand(map[string]any{"x": 10, "y": 20, "width": 30, "height": 40})
	if err != nil {
		t.Fatalf("NewCropCommand error: %v", err)
	}
	out, err := cmd.Execute(src)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 40 {
		t.Fatalf("got %v, want 30x40", out.Bounds())
	}

	want := color.NRGBAModel.Convert(src.At(10, 20)).(color.NRGBA)
	got := color.NRGBAModel.Convert(out.At(out.Bounds().Min.X, out.Bounds().Min.Y)).(color.NRGBA)
	if got != want {
		t.Fatalf("top-left pixel = %v, want %v", got, want)
	}
}

func TestCropCommand_OutOfBounds(t *testing.T) {
	cmd, err := NewCropCommand(map[string]any{"x": 50, "y": 0, "width": 60, "height": 10})
	if err != nil {
		t.Fatalf("NewCropCommand error: %v", err)
	}
	if _, err := cmd.Execute(testutil.Pattern(100, 80)); err == nil {
		t.Fatal("Expected error for rectangle extending past the right edge")
	}
}

func TestNewCropCommand_InvalidParams(t *testing.T) {
	for _, params := range []map[string]any{
		{"x": 0, "y": 0, "width": 10},
		{"x": 0, "y": 0, "width": 0, "height": 10},
		{"x": -1, "y": 0, "width": 10, "height": 10},
	} {
		if _, err := NewCropCommand(params); err == nil {
			t.Errorf("Expected error for params %v", params)
		}
	}
}

func TestAdjustCommand_NoopReturnsInput(t *testing.T) {
	src := solidImage(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	cmd, err := NewAdjustCommand(map[string]any{})
	if err != nil {
		t.Fatalf("NewAdjustCommand error: %v", err)
	}
	out, err := cmd.Execute(src)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != image.Image(src) {
		t.Fatal("Expected zero deltas to return the input unchanged")
	}
}

func TestAdjustCommand_Brightness(t *testing.T) {
	src := solidImage(4, 4, color.NRGBA{R: 100, G: 50, B: 200, A: 255})

	tests := []struct {
		delta float64
		want  color.NRGBA
	}{
		{delta: 50, want: color.NRGBA{R: 150, G: 75, B: 255, A: 255}},
		{delta: -50, want: color.NRGBA{R: 50, G: 25, B: 100, A: 255}},
		{delta: -100, want: color.NRGBA{R: 0, G: 0, B: 0, A: 255}},
	}
	for _, tt := range tests {
		cmd, err := NewAdjustCommand(map[string]any{"brightness": tt.delta})
		if err != nil {
			t.Fatalf("NewAdjustCommand error: %v", err)
		}
		out, err := cmd.Execute(src)
		if err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		got := color.NRGBAModel.Convert(out.At(1, 1)).(color.NRGBA)
		if got != tt.want {
			t.Errorf("brightness %v: got %v, want %v", tt.delta, got, tt.want)
		}
	}
}

func TestAdjustCommand_ContrastAndSaturation(t *testing.T) {
	// half black, half white: mean luminance is 127.5
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	cmd, err := NewAdjustCommand(map[string]any{"contrast": -100})
	if err != nil {
		t.Fatalf("NewAdjustCommand error: %v", err)
	}
	out, err := cmd.Execute(src)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	for x := 0; x < 2; x++ {
		got := color.NRGBAModel.Convert(out.At(x, 0)).(color.NRGBA)
		if got.R != 128 || got.G != 128 || got.B != 128 {
			t.Errorf("contrast -100 should flatten to the mean, pixel %d = %v", x, got)
		}
	}

	red := solidImage(2, 2, color.NRGBA{R: 255, A: 255})
	cmd, err = NewAdjustCommand(map[string]any{"saturation": -100})
	if err != nil {
		t.Fatalf("NewAdjustCommand error: %v", err)
	}
	out, err = cmd.Execute(red)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	got := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA)
	if got.R != got.G || got.G != got.B {
		t.Errorf("saturation -100 should produce grey, got %v", got)
	}
	if got.R != 76 {
		t.Errorf("expected luminance of pure red (76), got %d", got.R)
	}
}

func TestNewAdjustCommand_RejectsOutOfRange(t *testing.T) {
	for _, params := range []map[string]any{
		{"brightness": 101},
		{"contrast": -100.5},
		{"saturation": 250},
	} {
		if _, err := NewAdjustCommand(params); err == nil {
			t.Errorf("Expected error for params %v", params)
		}
	}
}

func TestCodec_RoundTripFormats(t *testing.T) {
	src := testutil.Pattern(20, 10)
	for _, ext := range []string{"png", ".jpg", "jpeg", "gif"} {
		t.Run(ext, func(t *testing.T) {
			data, err := EncodeImage(src, ext)
			if err != nil {
				t.Fatalf("EncodeImage error: %v", err)
			}
			img, err := DecodeImage(data)
			if err != nil {
				t.Fatalf("DecodeImage error: %v", err)
			}
			if Resolution(img) != "20x10" {
				t.Fatalf("Resolution = %s", Resolution(img))
			}
		})
	}

	if _, err := EncodeImage(src, "svg"); err == nil {
		t.Fatal("Expected error for unsupported format")
	}
	if _, err := DecodeImage([]byte("nope")); err == nil {
		t.Fatal("Expected error for invalid data")
	}
}

func TestDecodeDimensions(t *testing.T) {
	width, height, err := DecodeDimensions(testutil.PNG(t, 320, 240))
	if err != nil {
		t.Fatalf("DecodeDimensions error: %v", err)
	}
	if width != 320 || height != 240 {
		t.Fatalf("expected 320x240, got %dx%d", width, height)
	}

	if _, _, err := DecodeDimensions([]byte("not an image")); err == nil {
		t.Fatalf("expected error for undecodable data")
	}
}
