package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"yuja/internal/model/novel"
)

// SceneRepository 场景仓库接口（供 service 层依赖）
type SceneRepository interface {
	Create(ctx context.Context, scene *novel.Scene) error
	FindByID(ctx context.Context, id string) (*novel.Scene, error)
	FindByNovelID(ctx context.Context, novelID string) ([]*novel.Scene, error)
	FindByChapterID(ctx context.Context, chapterID string) ([]*novel.Scene, error)
	Update(ctx context.Context, id string, updates bson.M) error
	PullCasting(ctx context.Context, novelID, characterID string) error
	Delete(ctx context.Context, id string) error
	DeleteByNovelID(ctx context.Context, novelID string) error
	DeleteByChapterID(ctx context.Context, chapterID string) error
}

// SceneRepo 场景仓库
type SceneRepo struct {
	coll *mongo.Collection
}

// NewSceneRepo 创建场景仓库
func NewSceneRepo(db *mongo.Database) *SceneRepo {
	var s novel.Scene
	return &SceneRepo{coll: db.Collection(s.Collection())}
}

// Create 创建场景
func (r *SceneRepo) Create(ctx context.Context, scene *novel.Scene) error {
	now := time.Now()
	scene.CreatedAt = now
	scene.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, scene)
	return err
}

// FindByID 根据ID查询场景
func (r *SceneRepo) FindByID(ctx context.Context, id string) (*novel.Scene, error) {
	var scene novel.Scene
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

// FindByNovelID 查询小说的所有场景（含孤儿场景，按创建时间升序）
func (r *SceneRepo) FindByNovelID(ctx context.Context, novelID string) ([]*novel.Scene, error) {
	filter := bson.M{"novel_id": novelID, "deleted_at": nil}
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var scenes []*novel.Scene
	if err := cur.All(ctx, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// FindByChapterID 查询章节下的场景
func (r *SceneRepo) FindByChapterID(ctx context.Context, chapterID string) ([]*novel.Scene, error) {
	filter := bson.M{"chapter_id": chapterID, "deleted_at": nil}
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var scenes []*novel.Scene
	if err := cur.All(ctx, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// Update 更新场景信息
func (r *SceneRepo) Update(ctx context.Context, id string, updates bson.M) error {
	updates["updated_at"] = time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": updates},
	)
	return err
}

// PullCasting 从小说的全部场景里移除指定角色（删除角色时的级联）
func (r *SceneRepo) PullCasting(ctx context.Context, novelID, characterID string) error {
	_, err := r.coll.UpdateMany(
		ctx,
		bson.M{"novel_id": novelID, "deleted_at": nil},
		bson.M{
			"$pull": bson.M{"casting": characterID},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	return err
}

// Delete 软删除场景
func (r *SceneRepo) Delete(ctx context.Context, id string) error {
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

// DeleteByNovelID 软删除小说下的全部场景
func (r *SceneRepo) DeleteByNovelID(ctx context.Context, novelID string) error {
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

// DeleteByChapterID 软删除章节下的全部场景（按章节重新切分前清理）
func (r *SceneRepo) DeleteByChapterID(ctx context.Context, chapterID string) error {
	_, err := r.coll.UpdateMany(
		ctx,
		bson.M{"chapter_id": chapterID, "deleted_at": nil},
		bson.M{"$set": bson.M{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}},
	)
	return err
}
