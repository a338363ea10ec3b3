package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("storage")

// LocalStore 本地目录存储，文件通过 HTTP 静态路由对外暴露
type LocalStore struct {
	root      string
	publicURL string
}

// NewLocalStore 创建本地存储，publicURL 为空时使用站点根路径
func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root, publicURL: publicURL}, nil
}

// Root 存储根目录
func (s *LocalStore) Root() string {
	return s.root
}

// Name 后端名称
func (s *LocalStore) Name() string {
	return "local"
}

// Put 写入文件
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	_, span := tracer.Start(ctx, "storage.LocalStore.Put")
	defer span.End()

	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return joinURL(s.publicURL, key), nil
}

// Get 读取文件
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "storage.LocalStore.Get")
	defer span.End()

	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// KeyFromURL 将 URL 还原为对象键
func (s *LocalStore) KeyFromURL(url string) (string, bool) {
	return trimURL(s.publicURL, url)
}
