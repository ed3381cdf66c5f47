package storage

import (
	"context"
	"io"
	"io/fs"
)

// FileStorage 文件存储接口
// The public asset root: static pages served over HTTP and the seed fixture
// both come from here.
type FileStorage interface {
	// Open opens a file by slash-separated path relative to the root.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// FS exposes the root for static file serving.
	FS() fs.FS

	// Exists reports whether name is a regular file under the root.
	Exists(name string) bool
}
