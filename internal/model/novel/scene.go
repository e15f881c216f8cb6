package novel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// 结构化图片提示词的六个组成部分
const (
	PromptKeyCharacters  = "characters"            // 人物外貌、表情、动作
	PromptKeyBackground  = "background"            // 背景与核心道具
	PromptKeyComposition = "angle_and_composition" // 机位与构图
	PromptKeyLighting    = "lighting_and_color"    // 光线与色调
	PromptKeyMood        = "mood_and_atmosphere"   // 氛围
	PromptKeyStyle       = "style"                 // 画面风格
	PromptKeyError       = "error"                 // 生成失败时的错误标记
)

// PromptComponentKeys 结构化提示词必须包含的全部组件 key
var PromptComponentKeys = []string{
	PromptKeyCharacters,
	PromptKeyBackground,
	PromptKeyComposition,
	PromptKeyLighting,
	PromptKeyMood,
	PromptKeyStyle,
}

// Scene 场景实体
// 由场景切分阶段创建；ChapterID 为空表示孤儿场景
// （早于章节切分产生，或整本未分章的小说）。
// ImagePrompt 三态：nil=未生成，含 error key=生成出错，其余=正常的组件映射。
type Scene struct {
	ID string `bson:"id" json:"id"` // 场景ID（UUID）

	NovelID     string `bson:"novel_id" json:"novel_id"`                     // 关联的小说ID
	ChapterID   string `bson:"chapter_id,omitempty" json:"chapter_id"`       // 所属章节ID（空=孤儿场景）
	Title       string `bson:"title" json:"title"`                           // 场景标题
	Storyboard  string `bson:"storyboard,omitempty" json:"storyboard"`       // 构图说明
	Narration   string `bson:"narration,omitempty" json:"narration"`         // 지문（舞台说明）
	Dialogue    string `bson:"dialogue,omitempty" json:"dialogue"`           // 台词
	MiseEnScene string `bson:"mise_en_scene,omitempty" json:"mise_en_scene"` // 氛围/场面调度

	// Casting 出场角色ID列表（有序，匹配阶段整体替换）
	// 构造上不阻止重复，匹配逻辑按集合处理。
	Casting []string `bson:"casting" json:"casting"`

	ImagePrompt map[string]string `bson:"image_prompt,omitempty" json:"image_prompt,omitempty"` // 结构化图片提示词
	ImageURL    string            `bson:"image_url" json:"image_url"`                           // 场景插图存储 key（空=未生成）

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// HasImage 是否已生成场景插图
func (s *Scene) HasImage() bool { return s.ImageURL != "" }

// HasPrompt 是否已持有可复用的结构化提示词（错误标记不算）
func (s *Scene) HasPrompt() bool {
	if len(s.ImagePrompt) == 0 {
		return false
	}
	_, isErr := s.ImagePrompt[PromptKeyError]
	return !isErr
}

// Collection 返回集合名称
func (s *Scene) Collection() string { return "scenes" }

// EnsureIndexes 创建和维护索引
func (s *Scene) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_novel_created"),
		},
		{
			Keys:    bson.D{{Key: "chapter_id", Value: 1}},
			Options: options.Index().SetName("idx_chapter"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
