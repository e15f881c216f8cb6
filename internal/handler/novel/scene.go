package novel

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	novelsvc "yuja/internal/service/novel"
)

// SplitScenesRequest 场景切分请求
type SplitScenesRequest struct {
	// PerChapter true=按章节切分（已有场景的章节跳过）；false=整本切分（整体重建）
	PerChapter bool `json:"per_chapter"`
}

// SplitScenes 场景切分
// @Summary      场景切分
// @Description  用文本模型把剧本切分成场景，并按精确子串匹配出场角色。
// @Tags         场景管理
// @Accept       json
// @Produce      json
// @Param        novel_id  path      string             true  "小说ID"
// @Param        request   body      SplitScenesRequest  false "切分选项"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      400       {object}  ErrorResponse  "按章节切分但小说还没有章节"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/scenes/split [post]
func (h *Handler) SplitScenes(c *gin.Context) {
	// 请求体可省略，省略时按整本切分处理
	var req SplitScenesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	scenes, err := h.novelService.SplitScenes(ctx, novelID, req.PerChapter)
	if err != nil {
		if errors.Is(err, novelsvc.ErrNoChapters) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    40004,
				Message: err.Error(),
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	message := "场景切分完成"
	if len(scenes) == 0 {
		message = "未产生新场景（模型无响应、输出不可解析或章节都已持有场景）"
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": message,
		"data": gin.H{
			"novel_id": novelID,
			"scenes":   toSceneInfoList(scenes),
		},
	})
}

// GetScenes 获取场景列表
// @Summary      场景列表
// @Tags         场景管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/novels/{novel_id}/scenes [get]
func (h *Handler) GetScenes(c *gin.Context) {
	ctx := c.Request.Context()

	scenes, err := h.novelService.GetScenes(ctx, c.Param("novel_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toSceneInfoList(scenes),
	})
}

// GetScenePrompt 获取场景结构化提示词
// @Summary      场景提示词
// @Description  返回场景的六组件结构化提示词；没有时生成（失败则兜底模板），refresh=true 强制重新生成。
// @Tags         场景管理
// @Produce      json
// @Param        novel_id  path      string  true   "小说ID"
// @Param        scene_id  path      string  true   "场景ID"
// @Param        refresh   query     bool    false  "强制重新生成"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "场景不存在"
// @Router       /api/v1/novels/{novel_id}/scenes/{scene_id}/prompt [get]
func (h *Handler) GetScenePrompt(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("novel_id")
	sceneID := c.Param("scene_id")
	refresh := c.Query("refresh") == "true"

	prompt, generated, err := h.novelService.GetOrGenerateScenePrompt(ctx, novelID, sceneID, refresh)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"scene_id":  sceneID,
			"prompt":    prompt,
			"generated": generated,
		},
	})
}

// GenerateSceneImages 批量生成场景插图
// @Summary      生成场景插图
// @Description  为所有缺插图的场景生成插图，出场角色的参考图作为一致性约束上送；单个失败跳过。
// @Tags         场景管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/scenes/images [post]
func (h *Handler) GenerateSceneImages(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	generated, err := h.novelService.GenerateSceneImages(ctx, novelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "场景插图生成完成",
		"data": gin.H{
			"novel_id":  novelID,
			"generated": len(generated),
			"keys":      generated,
		},
	})
}

// DeleteScene 删除场景
// @Summary      删除场景
// @Tags         场景管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Param        scene_id  path      string  true  "场景ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "场景不存在"
// @Router       /api/v1/novels/{novel_id}/scenes/{scene_id} [delete]
func (h *Handler) DeleteScene(c *gin.Context) {
	ctx := c.Request.Context()

	err := h.novelService.DeleteScene(ctx, c.Param("novel_id"), c.Param("scene_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "场景已删除",
	})
}
