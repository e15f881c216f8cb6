package novel

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SplitChapters 切分章节
// @Summary      切分章节
// @Description  按剧本中的标记行（#1장 / #제2장 ...）切分章节，旧章节整体重建。
// @Tags         章节管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/chapters/split [post]
func (h *Handler) SplitChapters(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	chapters, err := h.novelService.SplitChapters(ctx, novelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "章节切分完成",
		"data": gin.H{
			"novel_id": novelID,
			"chapters": toChapterInfoList(chapters),
		},
	})
}

// GetChapters 获取章节列表
// @Summary      章节列表
// @Tags         章节管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/novels/{novel_id}/chapters [get]
func (h *Handler) GetChapters(c *gin.Context) {
	ctx := c.Request.Context()

	chapters, err := h.novelService.GetChapters(ctx, c.Param("novel_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toChapterInfoList(chapters),
	})
}
