package wizard

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// Camera is an exclusively owned capture device. The machine acquires it
// on the capture screen and releases it when leaving that screen.
type Camera interface {
	// Acquire fails with ErrCameraUnavailable when access is denied.
	Acquire(ctx context.Context) error
	Capture(ctx context.Context) (Photo, error)
	Release() error
}

// PhotoSource picks an existing image, such as a gallery or file picker.
type PhotoSource interface {
	Select(ctx context.Context) (Photo, error)
}

// FileSource selects the image stored at Path.
type FileSource struct {
	Path string
}

func (f FileSource) Select(ctx context.Context) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Photo{}, fmt.Errorf("failed to read photo: %w", err)
	}
	return Photo{
		Filename:    filepath.Base(f.Path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
