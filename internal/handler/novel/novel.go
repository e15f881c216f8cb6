package novel

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	novelsvc "yuja/internal/service/novel"
)

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	Title       string `json:"title" binding:"required"`  // 小说名称（必填）
	Description string `json:"description"`               // 简介
	Script      string `json:"script" binding:"required"` // 原始剧本（必填）
}

// CreateNovel 创建小说
// @Summary      创建小说
// @Description  保存原始剧本并创建小说，返回小说信息。这是整个创作流程的第一步。
// @Tags         小说管理
// @Accept       json
// @Produce      json
// @Param        request  body      CreateNovelRequest  true  "创建小说请求"
// @Success      201      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels [post]
func (h *Handler) CreateNovel(c *gin.Context) {
	var req CreateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	n, err := h.novelService.CreateNovel(ctx, req.Title, req.Description, req.Script)
	if err != nil {
		if errors.Is(err, novelsvc.ErrEmptyTitle) || errors.Is(err, novelsvc.ErrEmptyScript) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    40002,
				Message: err.Error(),
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "小说创建成功",
		"data":    toNovelInfo(n),
	})
}

// GetNovel 获取小说详情
// @Summary      获取小说
// @Tags         小说管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Router       /api/v1/novels/{novel_id} [get]
func (h *Handler) GetNovel(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := h.novelService.GetNovel(ctx, c.Param("novel_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"novel":  toNovelInfo(n),
			"script": n.Script,
		},
	})
}

// ListNovels 获取小说列表
// @Summary      小说列表
// @Tags         小说管理
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/novels [get]
func (h *Handler) ListNovels(c *gin.Context) {
	ctx := c.Request.Context()

	novels, err := h.novelService.ListNovels(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toNovelInfoList(novels),
	})
}

// DeleteNovel 删除小说
// @Summary      删除小说
// @Description  删除小说及其全部章节、角色、场景和已生成的图片。
// @Tags         小说管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Router       /api/v1/novels/{novel_id} [delete]
func (h *Handler) DeleteNovel(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.novelService.DeleteNovel(ctx, c.Param("novel_id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "小说已删除",
	})
}

// PreprocessRequest 剧本预处理请求
type PreprocessRequest struct {
	// Operations 预处理操作名列表，按给定顺序执行
	// 可选值: whitespace, dedup_newlines, paragraphs, dialogue, special_chars
	Operations []string `json:"operations" binding:"required,min=1"`
}

// PreprocessScript 剧本预处理
// @Summary      剧本预处理
// @Description  按指定顺序对剧本执行整理操作并持久化，返回处理后的剧本。
// @Tags         小说管理
// @Accept       json
// @Produce      json
// @Param        novel_id  path      string             true  "小说ID"
// @Param        request   body      PreprocessRequest  true  "预处理请求"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      400       {object}  ErrorResponse  "请求参数错误"
// @Router       /api/v1/novels/{novel_id}/preprocess [post]
func (h *Handler) PreprocessScript(c *gin.Context) {
	var req PreprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	script, err := h.novelService.PreprocessScript(ctx, novelID, req.Operations)
	if err != nil {
		if errors.Is(err, novelsvc.ErrUnknownOperation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    40003,
				Message: err.Error(),
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "剧本预处理完成",
		"data": gin.H{
			"novel_id": novelID,
			"script":   script,
		},
	})
}
