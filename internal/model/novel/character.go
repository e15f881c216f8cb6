package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Character 角色实体（小说级别）
// 由角色提取阶段批量创建，也可以手动添加。
// ReferenceImageURL 为空字符串表示"尚未生成"，不使用 null。
// 提取结果不按姓名去重：同名角色会作为两条记录保留。
type Character struct {
	ID string `bson:"id" json:"id"` // 角色ID（UUID）

	NovelID     string `bson:"novel_id" json:"novel_id"` // 关联的小说ID
	Name        string `bson:"name" json:"name"`         // 角色姓名
	Description string `bson:"description" json:"description"`
	// 角色详细描述，既用于展示也作为参考图生成的种子

	ReferenceImageURL string `bson:"reference_image_url" json:"reference_image_url"` // 参考图存储 key（空=未生成）

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (c *Character) Collection() string { return "characters" }

// EnsureIndexes 创建和维护索引
func (c *Character) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_novel_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
