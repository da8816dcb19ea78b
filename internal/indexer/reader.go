package indexer

import (
	"context"
	"os"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// Reader is the file-read capability used by the read phase
type Reader interface {
	ReadFile(ctx context.Context, path string) (types.File, error)
}

// FileSystemReader reads files from the local disk
type FileSystemReader struct{}

// ReadFile reads path, returning a *types.ReadError on failure
func (FileSystemReader) ReadFile(ctx context.Context, path string) (types.File, error) {
	if err := ctx.Err(); err != nil {
		return types.File{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return types.File{}, &types.ReadError{Path: path, Err: err}
	}

	return types.File{Path: path, Contents: string(content)}, nil
}
