package novel

import (
	"context"
	"time"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/scripttools"
	"yuja/internal/pkg/storage"
	novelrepo "yuja/internal/repository/novel"
)

// TextCompleter 文本补全能力（由 internal/ai.Client 提供）
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator 图片生成能力（由 internal/ai.ImageClient 提供）
// referenceImages 为空表示纯文生图。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, referenceImages [][]byte) ([]byte, error)
}

// PromptCache 场景结构化提示词缓存（由 internal/pkg/cache 提供）
// 缓存只是镜像，MongoDB 里的 Scene.ImagePrompt 才是持久副本。
type PromptCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, keys ...string) error
}

// NovelService 小说服务接口
// 定义从剧本录入到场景插图生成的全部能力
type NovelService interface {
	// CreateNovel 创建小说并保存原始剧本
	CreateNovel(ctx context.Context, title, description, script string) (*novel.Novel, error)

	// GetNovel 获取小说信息
	GetNovel(ctx context.Context, novelID string) (*novel.Novel, error)

	// ListNovels 获取全部小说（按创建时间倒序）
	ListNovels(ctx context.Context) ([]*novel.Novel, error)

	// DeleteNovel 删除小说及其章节、角色、场景和已生成的图片
	DeleteNovel(ctx context.Context, novelID string) error

	// PreprocessScript 按指定顺序对剧本执行预处理操作并持久化
	PreprocessScript(ctx context.Context, novelID string, operations []string) (string, error)

	// SplitChapters 按标记行切分章节（整体重建）
	SplitChapters(ctx context.Context, novelID string) ([]*novel.Chapter, error)

	// GetChapters 获取小说的所有章节
	GetChapters(ctx context.Context, novelID string) ([]*novel.Chapter, error)

	// ExtractCharacters 从剧本提取角色（合并到已有角色，不去重）
	ExtractCharacters(ctx context.Context, novelID string) ([]*novel.Character, error)

	// GetCharacters 获取小说的所有角色
	GetCharacters(ctx context.Context, novelID string) ([]*novel.Character, error)

	// DeleteCharacter 删除角色并从所有场景的出场列表中移除
	DeleteCharacter(ctx context.Context, novelID, characterID string) error

	// SplitScenes 场景切分
	// perChapter=false: 整本切分，已有场景整体重建（孤儿场景）
	// perChapter=true: 按章节切分，已持有场景的章节跳过
	SplitScenes(ctx context.Context, novelID string, perChapter bool) ([]*novel.Scene, error)

	// GetScenes 获取小说的所有场景
	GetScenes(ctx context.Context, novelID string) ([]*novel.Scene, error)

	// DeleteScene 删除单个场景
	DeleteScene(ctx context.Context, novelID, sceneID string) error

	// GetOrGenerateScenePrompt 获取场景的结构化提示词
	// 场景必须属于指定小说。已有可用提示词且未要求刷新时直接返回；
	// 否则生成（失败时用兜底模板）。第二个返回值表示本次是否新生成。
	GetOrGenerateScenePrompt(ctx context.Context, novelID, sceneID string, refresh bool) (map[string]string, bool, error)

	// GenerateCharacterImages 为所有缺参考图的角色生成参考图
	GenerateCharacterImages(ctx context.Context, novelID string) ([]string, error)

	// GenerateSceneImages 为所有缺插图的场景生成插图（带出场角色参考图）
	GenerateSceneImages(ctx context.Context, novelID string) ([]string, error)

	// RunAutomation 按依赖顺序执行全部生成阶段（阶段级幂等）
	RunAutomation(ctx context.Context, novelID string) (*AutomationReport, error)
}

// interItemDelay 批量生成阶段的逐项间隔
// 与外部调用的 3 秒限速闸门相互独立。
// 变量形式方便测试里调小。
var interItemDelay = time.Second

// novelService 小说服务实现
type novelService struct {
	novelRepo     novelrepo.NovelRepository
	chapterRepo   novelrepo.ChapterRepository
	characterRepo novelrepo.CharacterRepository
	sceneRepo     novelrepo.SceneRepository

	completer TextCompleter
	imageGen  ImageGenerator
	store     storage.Storage
	cache     PromptCache

	normalizer *scripttools.Normalizer
}

// NewNovelService 创建小说服务
// repository 从 db 内部创建，AI 能力、存储和缓存由调用方注入。
func NewNovelService(
	novelRepo novelrepo.NovelRepository,
	chapterRepo novelrepo.ChapterRepository,
	characterRepo novelrepo.CharacterRepository,
	sceneRepo novelrepo.SceneRepository,
	completer TextCompleter,
	imageGen ImageGenerator,
	store storage.Storage,
	promptCache PromptCache,
) NovelService {
	return &novelService{
		novelRepo:     novelRepo,
		chapterRepo:   chapterRepo,
		characterRepo: characterRepo,
		sceneRepo:     sceneRepo,
		completer:     completer,
		imageGen:      imageGen,
		store:         store,
		cache:         promptCache,
		normalizer:    scripttools.NewNormalizer(),
	}
}

// sleepBetweenItems 逐项间隔，尊重 ctx 取消
func sleepBetweenItems(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(interItemDelay):
		return nil
	}
}
