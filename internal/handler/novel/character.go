package novel

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExtractCharacters 提取角色
// @Summary      提取角色
// @Description  用文本模型从剧本提取角色并入库。重复调用是合并不替换，同名角色不去重。
// @Tags         角色管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/characters/extract [post]
func (h *Handler) ExtractCharacters(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	characters, err := h.novelService.ExtractCharacters(ctx, novelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "角色提取完成"
	if len(characters) == 0 {
		message = "未提取到角色（模型无响应或输出不可解析）"
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": message,
		"data": gin.H{
			"novel_id":   novelID,
			"characters": toCharacterInfoList(characters),
		},
	})
}

// GetCharacters 获取角色列表
// @Summary      角色列表
// @Tags         角色管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/novels/{novel_id}/characters [get]
func (h *Handler) GetCharacters(c *gin.Context) {
	ctx := c.Request.Context()

	characters, err := h.novelService.GetCharacters(ctx, c.Param("novel_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toCharacterInfoList(characters),
	})
}

// GenerateCharacterImages 批量生成角色参考图
// @Summary      生成角色参考图
// @Description  为所有缺参考图的角色逐个生成参考图，每成功一个立即持久化；单个失败跳过。
// @Tags         角色管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/characters/images [post]
func (h *Handler) GenerateCharacterImages(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("novel_id")

	generated, err := h.novelService.GenerateCharacterImages(ctx, novelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "角色参考图生成完成",
		"data": gin.H{
			"novel_id":  novelID,
			"generated": len(generated),
			"keys":      generated,
		},
	})
}

// DeleteCharacter 删除角色
// @Summary      删除角色
// @Description  删除角色，并把它从所有场景的出场列表里移除。
// @Tags         角色管理
// @Produce      json
// @Param        novel_id      path      string  true  "小说ID"
// @Param        character_id  path      string  true  "角色ID"
// @Success      200           {object}  map[string]interface{}  "成功响应"
// @Failure      404           {object}  ErrorResponse  "角色不存在"
// @Router       /api/v1/novels/{novel_id}/characters/{character_id} [delete]
func (h *Handler) DeleteCharacter(c *gin.Context) {
	ctx := c.Request.Context()

	err := h.novelService.DeleteCharacter(ctx, c.Param("novel_id"), c.Param("character_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "角色已删除",
	})
}
