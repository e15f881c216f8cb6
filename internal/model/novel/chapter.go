package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Chapter 章节实体
// 由章节切分器按剧本中的标记行（#1장 / #제2장 ...）生成。
// 每次切分整体重建：没有单章的局部更新生命周期。
type Chapter struct {
	ID string `bson:"id" json:"id"` // 章节ID（UUID）

	NovelID       string `bson:"novel_id" json:"novel_id"`             // 关联的小说ID
	ChapterNumber int    `bson:"chapter_number" json:"chapter_number"` // 章节号（小说内唯一，决定排序）
	Title         string `bson:"title" json:"title"`                   // 章节标题
	Content       string `bson:"content" json:"content"`               // 标记行到下一个标记行之间的剧本内容

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (c *Chapter) Collection() string { return "chapters" }

// EnsureIndexes 创建和维护索引
func (c *Chapter) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "chapter_number", Value: 1}},
			Options: options.Index().SetName("idx_novel_number"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
