package export

import (
	"context"
	"os"

	"github.com/FocuswithJustin/pngmeta/core/errors"
	"github.com/FocuswithJustin/pngmeta/internal/validation"
)

// OSFileReader reads image files from the local filesystem. Files larger
// than validation.MaxFileSize are refused before they are loaded.
type OSFileReader struct{}

// ReadFile implements pngtext.FileReader.
func (OSFileReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if info.IsDir() {
		return nil, errors.NewIO("read", path, errors.NewValidation("path", "is a directory"))
	}
	if err := validation.CheckFileSize(info.Size()); err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return data, nil
}
