package novel

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"yuja/internal/model/novel"
	httputil "yuja/internal/pkg/http"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// NovelInfo 小说信息 DTO
type NovelInfo struct {
	ID          string `json:"id"`                    // 小说ID
	Title       string `json:"title"`                 // 小说名称
	Description string `json:"description,omitempty"` // 简介
	ScriptChars int    `json:"script_chars"`          // 剧本字符数
	CreatedAt   string `json:"created_at"`            // 创建时间
	UpdatedAt   string `json:"updated_at"`            // 更新时间
}

// toNovelInfo 将 Novel 实体转换为 NovelInfo DTO
func toNovelInfo(novelEntity *novel.Novel) NovelInfo {
	return NovelInfo{
		ID:          novelEntity.ID,
		Title:       novelEntity.Title,
		Description: novelEntity.Description,
		ScriptChars: len([]rune(novelEntity.Script)),
		CreatedAt:   novelEntity.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   novelEntity.UpdatedAt.Format(time.RFC3339),
	}
}

// toNovelInfoList 将 Novel 实体列表转换为 NovelInfo DTO 列表
func toNovelInfoList(novels []*novel.Novel) []NovelInfo {
	list := make([]NovelInfo, len(novels))
	for i, n := range novels {
		list[i] = toNovelInfo(n)
	}
	return list
}

// ChapterInfo 章节信息 DTO
type ChapterInfo struct {
	ID            string `json:"id"`             // 章节ID
	NovelID       string `json:"novel_id"`       // 小说ID
	ChapterNumber int    `json:"chapter_number"` // 章节号
	Title         string `json:"title"`          // 章节标题
	Content       string `json:"content"`        // 章节正文
	CreatedAt     string `json:"created_at"`     // 创建时间
}

// toChapterInfoList 将 Chapter 实体列表转换为 ChapterInfo DTO 列表
func toChapterInfoList(chapters []*novel.Chapter) []ChapterInfo {
	list := make([]ChapterInfo, len(chapters))
	for i, ch := range chapters {
		list[i] = ChapterInfo{
			ID:            ch.ID,
			NovelID:       ch.NovelID,
			ChapterNumber: ch.ChapterNumber,
			Title:         ch.Title,
			Content:       ch.Content,
			CreatedAt:     ch.CreatedAt.Format(time.RFC3339),
		}
	}
	return list
}

// CharacterInfo 角色信息 DTO
type CharacterInfo struct {
	ID                string `json:"id"`                  // 角色ID
	NovelID           string `json:"novel_id"`            // 小说ID
	Name              string `json:"name"`                // 角色姓名
	Description       string `json:"description"`         // 角色描述
	ReferenceImageURL string `json:"reference_image_url"` // 参考图存储 key（空=未生成）
	CreatedAt         string `json:"created_at"`          // 创建时间
}

// toCharacterInfoList 将 Character 实体列表转换为 CharacterInfo DTO 列表
func toCharacterInfoList(characters []*novel.Character) []CharacterInfo {
	list := make([]CharacterInfo, len(characters))
	for i, c := range characters {
		list[i] = CharacterInfo{
			ID:                c.ID,
			NovelID:           c.NovelID,
			Name:              c.Name,
			Description:       c.Description,
			ReferenceImageURL: c.ReferenceImageURL,
			CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		}
	}
	return list
}

// SceneInfo 场景信息 DTO
type SceneInfo struct {
	ID          string            `json:"id"`                     // 场景ID
	NovelID     string            `json:"novel_id"`               // 小说ID
	ChapterID   string            `json:"chapter_id,omitempty"`   // 所属章节ID（空=孤儿场景）
	Title       string            `json:"title"`                  // 场景标题
	Storyboard  string            `json:"storyboard,omitempty"`   // 构图说明
	Narration   string            `json:"narration,omitempty"`    // 지문
	Dialogue    string            `json:"dialogue,omitempty"`     // 台词
	MiseEnScene string            `json:"mise_en_scene,omitempty"` // 氛围
	Casting     []string          `json:"casting"`                // 出场角色ID
	ImagePrompt map[string]string `json:"image_prompt,omitempty"` // 结构化提示词
	ImageURL    string            `json:"image_url"`              // 插图存储 key（空=未生成）
	CreatedAt   string            `json:"created_at"`             // 创建时间
}

// toSceneInfo 将 Scene 实体转换为 SceneInfo DTO
func toSceneInfo(sc *novel.Scene) SceneInfo {
	return SceneInfo{
		ID:          sc.ID,
		NovelID:     sc.NovelID,
		ChapterID:   sc.ChapterID,
		Title:       sc.Title,
		Storyboard:  sc.Storyboard,
		Narration:   sc.Narration,
		Dialogue:    sc.Dialogue,
		MiseEnScene: sc.MiseEnScene,
		Casting:     sc.Casting,
		ImagePrompt: sc.ImagePrompt,
		ImageURL:    sc.ImageURL,
		CreatedAt:   sc.CreatedAt.Format(time.RFC3339),
	}
}

// toSceneInfoList 将 Scene 实体列表转换为 SceneInfo DTO 列表
func toSceneInfoList(scenes []*novel.Scene) []SceneInfo {
	list := make([]SceneInfo, len(scenes))
	for i, sc := range scenes {
		list[i] = toSceneInfo(sc)
	}
	return list
}

// respondServiceError 服务层错误到 HTTP 状态的统一映射
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "resource not found",
			Detail:  err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
	}
}
