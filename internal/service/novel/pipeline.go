package novel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AutomationReport 全流程执行报告
// 每个阶段记录实际产出数量；跳过的阶段在 SkippedStages 里留名。
type AutomationReport struct {
	NovelID             string   `json:"novel_id"`
	CharactersExtracted int      `json:"characters_extracted"`
	CharacterImages     int      `json:"character_images"`
	ScenesCreated       int      `json:"scenes_created"`
	SceneImages         int      `json:"scene_images"`
	SkippedStages       []string `json:"skipped_stages,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
}

// RunAutomation 按依赖顺序执行全部生成阶段
// 阶段顺序：角色提取 → 角色参考图 → 场景切分 → 场景插图。
// 前置条件已满足的阶段跳过（阶段级幂等）；图片阶段按逐项哨兵重试，
// 之前失败的单项会在下次执行时重试。单发阶段失败中止该阶段但不中止流水线。
func (s *novelService) RunAutomation(ctx context.Context, novelID string) (*AutomationReport, error) {
	if _, err := s.novelRepo.FindByID(ctx, novelID); err != nil {
		return nil, fmt.Errorf("find novel: %w", err)
	}

	report := &AutomationReport{NovelID: novelID}

	// 阶段1: 角色提取（已有角色则跳过；重跑时合并不替换）
	characters, err := s.characterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find characters: %w", err)
	}
	if len(characters) > 0 {
		report.SkippedStages = append(report.SkippedStages, "extract_characters")
	} else {
		extracted, err := s.ExtractCharacters(ctx, novelID)
		if err != nil {
			return nil, fmt.Errorf("extract characters: %w", err)
		}
		report.CharactersExtracted = len(extracted)
		if len(extracted) == 0 {
			report.Warnings = append(report.Warnings, "character extraction produced no characters")
		}
	}

	// 阶段2: 角色参考图（逐项哨兵，已有参考图的角色在阶段内部跳过）
	characterImages, err := s.GenerateCharacterImages(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("generate character images: %w", err)
	}
	report.CharacterImages = len(characterImages)

	// 阶段3: 场景切分（已有场景则整阶段跳过；有章节时逐章增量）
	scenes, err := s.sceneRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find scenes: %w", err)
	}
	chapters, err := s.chapterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find chapters: %w", err)
	}

	switch {
	case len(scenes) > 0 && len(chapters) == 0:
		report.SkippedStages = append(report.SkippedStages, "split_scenes")
	case len(chapters) > 0:
		// 逐章模式自带"已有场景的章节跳过"，天然增量
		created, err := s.SplitScenes(ctx, novelID, true)
		if err != nil {
			return nil, fmt.Errorf("split scenes: %w", err)
		}
		report.ScenesCreated = len(created)
		if len(created) == 0 && len(scenes) > 0 {
			report.SkippedStages = append(report.SkippedStages, "split_scenes")
		}
	default:
		created, err := s.SplitScenes(ctx, novelID, false)
		if err != nil {
			return nil, fmt.Errorf("split scenes: %w", err)
		}
		report.ScenesCreated = len(created)
		if len(created) == 0 {
			report.Warnings = append(report.Warnings, "scene split produced no scenes")
		}
	}

	// 阶段4: 场景插图（逐项哨兵）
	sceneImages, err := s.GenerateSceneImages(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("generate scene images: %w", err)
	}
	report.SceneImages = len(sceneImages)

	log.Info().
		Str("novel_id", novelID).
		Int("characters_extracted", report.CharactersExtracted).
		Int("character_images", report.CharacterImages).
		Int("scenes_created", report.ScenesCreated).
		Int("scene_images", report.SceneImages).
		Strs("skipped", report.SkippedStages).
		Msg("automation pipeline finished")

	return report, nil
}
