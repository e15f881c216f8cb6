package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Novel 小说实体（主表）
// 用途：持有原始剧本，作为整个创作流程的核心聚合根。
// 章节、角色、场景都通过 novel_id 归属于它，不跨小说共享。
type Novel struct {
	ID string `bson:"id" json:"id"` // 小说ID（UUID）

	Title       string `bson:"title" json:"title"`                                 // 小说名称
	Description string `bson:"description,omitempty" json:"description,omitempty"` // 简介
	Script      string `bson:"script" json:"script"`                               // 原始剧本全文

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (n *Novel) Collection() string { return "novels" }

// EnsureIndexes 创建和维护索引
func (n *Novel) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(n.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
