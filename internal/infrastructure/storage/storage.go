// Package storage 提供生成图片与导出文件的存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"storyforge-api/internal/config"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("storage: object not found")

// 常用目录
const (
	DirAssets   = "generated/assets"
	DirVariants = "generated/variants"
	DirScenes   = "generated/scenes"
	DirExports  = "exports"
)

// Store 对象存储接口
type Store interface {
	// Put 写入对象并返回可公开访问的 URL
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get 读取对象
	Get(ctx context.Context, key string) ([]byte, error)
	// KeyFromURL 将 Put 返回的 URL 还原为对象键
	KeyFromURL(url string) (string, bool)
	// Name 后端名称
	Name() string
}

// New 按配置创建存储后端
func New(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStore(cfg.Local.Root, cfg.Local.PublicURL)
	case "r2":
		return NewR2Store(ctx, &cfg.R2)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// Key 拼接对象键
func Key(dir, name string) string {
	return path.Join(dir, name)
}

// cleanKey 规范化对象键，拒绝越界路径
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return cleaned, nil
}

// joinURL 拼接公开地址
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// trimURL 去掉公开地址前缀得到对象键
func trimURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key, err := cleanKey(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}
