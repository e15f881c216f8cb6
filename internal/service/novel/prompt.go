package novel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/cache"
	"yuja/internal/pkg/scripttools"
)

// GetOrGenerateScenePrompt 获取场景的结构化提示词
// 复用顺序：场景上的持久副本 → Redis 镜像 → 新生成。
// refresh=true 跳过复用强制重新生成。生成失败时落到兜底模板，
// 兜底结果同样持久化——六个 key 永远齐全，不返回半截结构。
func (s *novelService) GetOrGenerateScenePrompt(ctx context.Context, novelID, sceneID string, refresh bool) (map[string]string, bool, error) {
	scene, err := s.sceneRepo.FindByID(ctx, sceneID)
	if err != nil {
		return nil, false, fmt.Errorf("find scene: %w", err)
	}
	if scene.NovelID != novelID {
		return nil, false, fmt.Errorf("scene %s does not belong to novel %s", sceneID, novelID)
	}

	if !refresh {
		if scene.HasPrompt() {
			return scene.ImagePrompt, false, nil
		}
		if cached := s.promptFromCache(ctx, sceneID); cached != nil {
			return cached, false, nil
		}
	}

	castCharacters, err := s.characterRepo.FindByIDs(ctx, scene.Casting)
	if err != nil {
		return nil, false, fmt.Errorf("find cast characters: %w", err)
	}

	prompt := s.composeScenePrompt(ctx, scene, castCharacters)

	if err := s.sceneRepo.Update(ctx, sceneID, bson.M{"image_prompt": prompt}); err != nil {
		return nil, false, fmt.Errorf("store scene prompt: %w", err)
	}
	s.promptToCache(ctx, sceneID, prompt)

	return prompt, true, nil
}

// composeScenePrompt 生成六组件结构化提示词
// 无响应/提取失败/解码失败分别留痕后使用兜底模板，兜底永不失败。
func (s *novelService) composeScenePrompt(ctx context.Context, scene *novel.Scene, castCharacters []*novel.Character) map[string]string {
	response, err := s.completer.Complete(ctx, scripttools.ScenePromptRequest(scene, castCharacters))
	if err != nil {
		log.Warn().Err(err).Str("scene_id", scene.ID).
			Msg("scene prompt: no response from model, using default template")
		return s.defaultScenePrompt(scene, castCharacters)
	}

	objectText, ok := scripttools.ExtractJSONObject(response)
	if !ok {
		log.Warn().Str("scene_id", scene.ID).
			Msg("scene prompt: no JSON object in response, using default template")
		return s.defaultScenePrompt(scene, castCharacters)
	}

	var prompt map[string]string
	if err := json.Unmarshal([]byte(objectText), &prompt); err != nil {
		log.Warn().Err(err).Str("scene_id", scene.ID).
			Msg("scene prompt: response decode failed, using default template")
		return s.defaultScenePrompt(scene, castCharacters)
	}
	if len(prompt) == 0 {
		return s.defaultScenePrompt(scene, castCharacters)
	}

	return prompt
}

func (s *novelService) defaultScenePrompt(scene *novel.Scene, castCharacters []*novel.Character) map[string]string {
	names := make([]string, 0, len(castCharacters))
	for _, c := range castCharacters {
		names = append(names, c.Name)
	}
	return scripttools.DefaultScenePrompt(scene, names)
}

// promptFromCache 读取 Redis 镜像，未命中或不可用时返回 nil
func (s *novelService) promptFromCache(ctx context.Context, sceneID string) map[string]string {
	if s.cache == nil {
		return nil
	}

	var prompt map[string]string
	if err := s.cache.Get(ctx, cache.ScenePromptKey(sceneID), &prompt); err != nil {
		return nil
	}
	if len(prompt) == 0 {
		return nil
	}
	if _, isErr := prompt[novel.PromptKeyError]; isErr {
		return nil
	}
	return prompt
}

// promptToCache 写入 Redis 镜像，失败只记日志
func (s *novelService) promptToCache(ctx context.Context, sceneID string, prompt map[string]string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ScenePromptKey(sceneID), prompt, cache.ScenePromptCacheTTL); err != nil {
		log.Warn().Err(err).Str("scene_id", sceneID).Msg("failed to cache scene prompt")
	}
}
