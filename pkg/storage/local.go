package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/iceymoss/kilovolt/pkg/logger"

	"go.uber.org/zap"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	basePath string // 基础存储路径，如 ./public
	fsys     fs.FS
}

// NewLocalStorage 创建本地文件存储实例
func NewLocalStorage(basePath string) *LocalStorage {
	if info, err := os.Stat(basePath); err != nil || !info.IsDir() {
		logger.Warn("public root is not a readable directory", zap.String("path", basePath), zap.Error(err))
	}

	return &LocalStorage{
		basePath: basePath,
		fsys:     os.DirFS(basePath),
	}
}

// NewFSStorage serves an arbitrary fs.FS, e.g. fstest.MapFS in tests or an embed.FS.
func NewFSStorage(fsys fs.FS) *LocalStorage {
	return &LocalStorage{basePath: ".", fsys: fsys}
}

func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) FS() fs.FS {
	return s.fsys
}

func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fsys.Open(clean)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", clean, err)
	}
	return f, nil
}

func (s *LocalStorage) Exists(name string) bool {
	clean, err := cleanName(name)
	if err != nil {
		return false
	}
	info, err := fs.Stat(s.fsys, clean)
	return err == nil && info.Mode().IsRegular()
}

// cleanName turns a URL-ish path into an fs.FS name and rejects escapes from the root.
func cleanName(name string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		clean = "."
	}
	if !fs.ValidPath(clean) {
		return "", fmt.Errorf("invalid path %q: %w", name, fs.ErrInvalid)
	}
	return clean, nil
}
