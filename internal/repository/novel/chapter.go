package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"yuja/internal/model/novel"
)

// ChapterRepository 章节仓库接口（供 service 层依赖）
type ChapterRepository interface {
	Create(ctx context.Context, chapter *novel.Chapter) error
	FindByID(ctx context.Context, id string) (*novel.Chapter, error)
	FindByNovelID(ctx context.Context, novelID string) ([]*novel.Chapter, error)
	Update(ctx context.Context, id string, updates bson.M) error
	Delete(ctx context.Context, id string) error
	DeleteByNovelID(ctx context.Context, novelID string) error
}

// ChapterRepo 章节仓库
type ChapterRepo struct {
	coll *mongo.Collection
}

// NewChapterRepo 创建章节仓库
func NewChapterRepo(db *mongo.Database) *ChapterRepo {
	var c novel.Chapter
	return &ChapterRepo{coll: db.Collection(c.Collection())}
}

// Create 创建章节
func (r *ChapterRepo) Create(ctx context.Context, chapter *novel.Chapter) error {
	now := time.Now()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, chapter)
	return err
}

// FindByID 根据ID查询章节
func (r *ChapterRepo) FindByID(ctx context.Context, id string) (*novel.Chapter, error) {
	var ch novel.Chapter
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// FindByNovelID 查询小说的所有章节（按章节号升序）
func (r *ChapterRepo) FindByNovelID(ctx context.Context, novelID string) ([]*novel.Chapter, error) {
	filter := bson.M{"novel_id": novelID, "deleted_at": nil}
	opts := options.Find().SetSort(bson.M{"chapter_number": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var chapters []*novel.Chapter
	if err := cur.All(ctx, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

// Update 更新章节信息
func (r *ChapterRepo) Update(ctx context.Context, id string, updates bson.M) error {
	updates["updated_at"] = time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": updates},
	)
	return err
}

// Delete 软删除章节
func (r *ChapterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}},
	)
	return err
}

// DeleteByNovelID 软删除小说下的全部章节（重新切分前整体重建）
func (r *ChapterRepo) DeleteByNovelID(ctx context.Context, novelID string) error {
	_, err := r.coll.UpdateMany(
		ctx,
		bson.M{"novel_id": novelID, "deleted_at": nil},
		bson.M{"$set": bson.M{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}},
	)
	return err
}
