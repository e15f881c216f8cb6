package novel

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunAutomation 全流程自动化
// @Summary      全流程自动化
// @Description  按依赖顺序执行角色提取、角色参考图、场景切分、场景插图四个阶段；
// @Description  前置条件已满足的阶段跳过，重复调用安全（阶段级幂等）。
// @Tags         自动化
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/automation [post]
func (h *Handler) RunAutomation(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	report, err := h.novelService.RunAutomation(ctx, novelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "自动化流程执行完成",
		"data":    report,
	})
}
