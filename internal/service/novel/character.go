package novel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/id"
	"yuja/internal/pkg/scripttools"
	"yuja/internal/pkg/storage"
)

// extractedCharacter 角色提取的模型输出结构
type extractedCharacter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExtractCharacters 从剧本提取角色
// 一次补全调用；无响应/提取失败/解码失败都按空结果处理，
// 三种失败在日志里分别留痕。提取结果追加到已有角色之后（合并不替换，不按姓名去重）。
func (s *novelService) ExtractCharacters(ctx context.Context, novelID string) ([]*novel.Character, error) {
	n, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find novel: %w", err)
	}

	script, truncated := scripttools.OptimizeScriptLength(n.Script)
	if truncated {
		log.Warn().Str("novel_id", novelID).Msg("script truncated for character extraction prompt")
	}

	response, err := s.completer.Complete(ctx, scripttools.CharacterExtractionPrompt(script))
	if err != nil {
		log.Error().Err(err).Str("novel_id", novelID).Msg("character extraction: no response from model")
		return nil, nil
	}

	arrayText, ok := scripttools.ExtractJSONArray(response)
	if !ok {
		log.Error().Str("novel_id", novelID).Msg("character extraction: no JSON array in response")
		return nil, nil
	}

	var extracted []extractedCharacter
	if err := json.Unmarshal([]byte(arrayText), &extracted); err != nil {
		log.Error().Err(err).Str("novel_id", novelID).Msg("character extraction: response decode failed")
		return nil, nil
	}

	characters := make([]*novel.Character, 0, len(extracted))
	for _, e := range extracted {
		if e.Name == "" {
			continue
		}
		c := &novel.Character{
			ID:                id.New(),
			NovelID:           novelID,
			Name:              e.Name,
			Description:       e.Description,
			ReferenceImageURL: "",
		}
		if err := s.characterRepo.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("create character %s: %w", e.Name, err)
		}
		characters = append(characters, c)
	}

	log.Info().
		Str("novel_id", novelID).
		Int("characters", len(characters)).
		Msg("characters extracted")

	return characters, nil
}

// GetCharacters 获取小说的所有角色
func (s *novelService) GetCharacters(ctx context.Context, novelID string) ([]*novel.Character, error) {
	characters, err := s.characterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find characters: %w", err)
	}
	return characters, nil
}

// DeleteCharacter 删除角色
// 级联：从小说全部场景的出场列表移除该角色，再清理参考图。
func (s *novelService) DeleteCharacter(ctx context.Context, novelID, characterID string) error {
	c, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		return fmt.Errorf("find character: %w", err)
	}
	if c.NovelID != novelID {
		return fmt.Errorf("character %s does not belong to novel %s", characterID, novelID)
	}

	if err := s.sceneRepo.PullCasting(ctx, novelID, characterID); err != nil {
		return fmt.Errorf("pull casting: %w", err)
	}

	if c.ReferenceImageURL != "" {
		key := storage.ImageKey(novelID, storage.OwnerCharacter, characterID)
		if err := s.store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to delete character image")
		}
	}

	if err := s.characterRepo.Delete(ctx, characterID); err != nil {
		return fmt.Errorf("delete character: %w", err)
	}

	log.Info().Str("character_id", characterID).Str("name", c.Name).Msg("character deleted")
	return nil
}
