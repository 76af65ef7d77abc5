package commandstructure

import (
	"image"
)

// mockCommand is a simple mock implementation of the Command interface for testing
type mockCommand struct {
	name        string
	executeFunc func(image.Image) (image.Image, error)
}

func (m *mockCommand) Name() string {
	return m.name
}

func (m *mockCommand) Execute(img image.Image) (image.Image, error) {
	if m.executeFunc != nil {
		return m.executeFunc(img)
	}
	return img, nil
}

// newMockCommand creates a mock command with default behavior (pass-through)
func newMockCommand(name string) *mockCommand {
	return &mockCommand{name: name}
}

// newMockCommandWithError creates a mock command that returns an error
func newMockCommandWithError(name string, err error) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(image.Image) (image.Image, error) {
			return nil, err
		},
	}
}

// newGrowCommand returns a command that adds one pixel to each side of the image
func newGrowCommand(name string) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(img image.Image) (image.Image, error) {
			b := img.Bounds()
			return image.NewRGBA(image.Rect(0, 0, b.Dx()+1, b.Dy()+1)), nil
		},
	}
}

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
