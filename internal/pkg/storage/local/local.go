package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage 本地文件系统存储
type LocalStorage struct {
	basePath string // 基础路径
	baseURL  string // 基础URL（用于生成访问URL，可为空）
}

// NewLocalStorage 创建本地文件系统存储
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  baseURL,
	}, nil
}

// Save 保存图片字节
func (s *LocalStorage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullPath := filepath.Join(s.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		os.Remove(fullPath) // 清理写入失败的残留文件
		return "", fmt.Errorf("write file: %w", err)
	}

	return key, nil
}

// Load 按 key 读取图片字节
func (s *LocalStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Delete 删除图片
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.basePath, key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// DeletePrefix 删除 key 前缀对应的整个目录
func (s *LocalStorage) DeletePrefix(ctx context.Context, prefix string) error {
	if err := os.RemoveAll(filepath.Join(s.basePath, prefix)); err != nil {
		return fmt.Errorf("delete prefix: %w", err)
	}
	return nil
}

// Exists 检查图片是否存在
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Type 存储类型
func (s *LocalStorage) Type() string { return "local" }
