package storage

import (
	"context"
	"fmt"
)

// Storage 生成图片的二进制存储接口
// 核心流水线只依赖按 key 存取字节，后端可以是本地磁盘或对象存储。
type Storage interface {
	// Save 保存图片字节，返回可持久化引用的存储 key
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Load 按 key 读取图片字节
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete 删除图片
	Delete(ctx context.Context, key string) error

	// DeletePrefix 删除指定 key 前缀下的全部图片（小说级联删除用）
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists 检查图片是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Type 存储类型（local/oss）
	Type() string
}

// OwnerKind 图片归属的实体类型
type OwnerKind string

const (
	OwnerCharacter OwnerKind = "characters" // 角色参考图
	OwnerScene     OwnerKind = "scenes"     // 场景插图
)

// ImageKey 生成图片存储 key
// 布局：novels/<novelID>/images/<kind>/<ownerID>.jpg
func ImageKey(novelID string, kind OwnerKind, ownerID string) string {
	return fmt.Sprintf("novels/%s/images/%s/%s.jpg", novelID, kind, ownerID)
}

// NovelPrefix 小说所有图片的 key 前缀（级联删除用）
func NovelPrefix(novelID string) string {
	return fmt.Sprintf("novels/%s/", novelID)
}
