package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"yuja/internal/model/novel"
)

// NovelRepository 小说仓库接口（供 service 层依赖）
type NovelRepository interface {
	Create(ctx context.Context, n *novel.Novel) error
	FindByID(ctx context.Context, id string) (*novel.Novel, error)
	FindAll(ctx context.Context) ([]*novel.Novel, error)
	Update(ctx context.Context, id string, updates bson.M) error
	Delete(ctx context.Context, id string) error
}

// NovelRepo 小说仓库
type NovelRepo struct {
	coll *mongo.Collection
}

// NewNovelRepo 创建小说仓库
func NewNovelRepo(db *mongo.Database) *NovelRepo {
	var n novel.Novel
	return &NovelRepo{coll: db.Collection(n.Collection())}
}

// Create 创建小说
func (r *NovelRepo) Create(ctx context.Context, n *novel.Novel) error {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

// FindByID 根据ID查询小说
func (r *NovelRepo) FindByID(ctx context.Context, id string) (*novel.Novel, error) {
	var n novel.Novel
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// FindAll 查询全部小说（按创建时间倒序）
func (r *NovelRepo) FindAll(ctx context.Context) ([]*novel.Novel, error) {
	filter := bson.M{"deleted_at": nil}
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var novels []*novel.Novel
	if err := cur.All(ctx, &novels); err != nil {
		return nil, err
	}
	return novels, nil
}

// Update 更新小说信息
func (r *NovelRepo) Update(ctx context.Context, id string, updates bson.M) error {
	updates["updated_at"] = time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": updates},
	)
	return err
}

// Delete 软删除小说
func (r *NovelRepo) Delete(ctx context.Context, id string) error {
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
