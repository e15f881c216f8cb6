package novel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/cache"
	"yuja/internal/pkg/id"
	"yuja/internal/pkg/scripttools"
	"yuja/internal/pkg/storage"
)

// ErrNoChapters 按章节切分时小说还没有章节
var ErrNoChapters = errors.New("novel has no chapters, split chapters first")

// extractedScene 场景切分的模型输出结构
// casting 字段模型有时给字符串有时给数组，解码后统一整理。
type extractedScene struct {
	Title       string `json:"title"`
	Narration   string `json:"narration"`
	Dialogue    string `json:"dialogue"`
	Casting     any    `json:"casting"`
	Storyboard  string `json:"storyboard"`
	MiseEnScene string `json:"mise_en_scene"`
}

// SplitScenes 场景切分
// perChapter=false: 对整本剧本切分，已有场景整体重建，产出孤儿场景。
// perChapter=true: 逐章切分，已持有场景的章节跳过（增量重跑不产生重复）。
func (s *novelService) SplitScenes(ctx context.Context, novelID string, perChapter bool) ([]*novel.Scene, error) {
	n, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find novel: %w", err)
	}

	characters, err := s.characterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find characters: %w", err)
	}

	if !perChapter {
		if err := s.sceneRepo.DeleteByNovelID(ctx, novelID); err != nil {
			return nil, fmt.Errorf("delete scenes: %w", err)
		}
		scenes, err := s.splitSegment(ctx, novelID, "", n.Script, characters)
		if err != nil {
			return nil, err
		}
		log.Info().Str("novel_id", novelID).Int("scenes", len(scenes)).Msg("scenes split")
		return scenes, nil
	}

	chapters, err := s.chapterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find chapters: %w", err)
	}
	if len(chapters) == 0 {
		return nil, ErrNoChapters
	}

	var all []*novel.Scene
	for _, ch := range chapters {
		existing, err := s.sceneRepo.FindByChapterID(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("find chapter scenes: %w", err)
		}
		if len(existing) > 0 {
			log.Info().
				Str("chapter_id", ch.ID).
				Int("scenes", len(existing)).
				Msg("chapter already has scenes, skipping")
			continue
		}

		scenes, err := s.splitSegment(ctx, novelID, ch.ID, ch.Content, characters)
		if err != nil {
			return nil, fmt.Errorf("split chapter %d: %w", ch.ChapterNumber, err)
		}
		all = append(all, scenes...)
	}

	log.Info().Str("novel_id", novelID).Int("scenes", len(all)).Msg("scenes split per chapter")
	return all, nil
}

// splitSegment 对一段剧本做一次场景切分并入库
// 无响应/提取失败/解码失败都按空结果处理，日志里分别留痕。
func (s *novelService) splitSegment(ctx context.Context, novelID, chapterID, text string, characters []*novel.Character) ([]*novel.Scene, error) {
	script, truncated := scripttools.OptimizeScriptLength(text)
	if truncated {
		log.Warn().Str("novel_id", novelID).Str("chapter_id", chapterID).
			Msg("script truncated for scene split prompt")
	}

	response, err := s.completer.Complete(ctx, scripttools.SceneSplitPrompt(script))
	if err != nil {
		log.Error().Err(err).Str("novel_id", novelID).Msg("scene split: no response from model")
		return nil, nil
	}

	arrayText, ok := scripttools.ExtractJSONArray(response)
	if !ok {
		log.Error().Str("novel_id", novelID).Msg("scene split: no JSON array in response")
		return nil, nil
	}

	var extracted []extractedScene
	if err := json.Unmarshal([]byte(arrayText), &extracted); err != nil {
		log.Error().Err(err).Str("novel_id", novelID).Msg("scene split: response decode failed")
		return nil, nil
	}

	scenes := make([]*novel.Scene, 0, len(extracted))
	for i, e := range extracted {
		title := e.Title
		if title == "" {
			title = fmt.Sprintf("장면 %d", i+1)
		}

		hints := scripttools.NormalizeCastingHints(e.Casting)
		casting := scripttools.MatchCharacters(characters, hints, e.Dialogue, e.Narration)

		scene := &novel.Scene{
			ID:          id.New(),
			NovelID:     novelID,
			ChapterID:   chapterID,
			Title:       title,
			Storyboard:  e.Storyboard,
			Narration:   e.Narration,
			Dialogue:    e.Dialogue,
			MiseEnScene: e.MiseEnScene,
			Casting:     casting,
			ImageURL:    "",
		}
		if err := s.sceneRepo.Create(ctx, scene); err != nil {
			return nil, fmt.Errorf("create scene %q: %w", title, err)
		}
		scenes = append(scenes, scene)
	}

	return scenes, nil
}

// GetScenes 获取小说的所有场景
func (s *novelService) GetScenes(ctx context.Context, novelID string) ([]*novel.Scene, error) {
	scenes, err := s.sceneRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find scenes: %w", err)
	}
	return scenes, nil
}

// DeleteScene 删除单个场景（连同插图和提示词缓存）
func (s *novelService) DeleteScene(ctx context.Context, novelID, sceneID string) error {
	scene, err := s.sceneRepo.FindByID(ctx, sceneID)
	if err != nil {
		return fmt.Errorf("find scene: %w", err)
	}
	if scene.NovelID != novelID {
		return fmt.Errorf("scene %s does not belong to novel %s", sceneID, novelID)
	}

	if scene.ImageURL != "" {
		key := storage.ImageKey(novelID, storage.OwnerScene, sceneID)
		if err := s.store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to delete scene image")
		}
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.ScenePromptKey(sceneID)); err != nil {
			log.Warn().Err(err).Str("scene_id", sceneID).Msg("failed to drop scene prompt cache")
		}
	}

	if err := s.sceneRepo.Delete(ctx, sceneID); err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}

	log.Info().Str("scene_id", sceneID).Str("title", scene.Title).Msg("scene deleted")
	return nil
}
