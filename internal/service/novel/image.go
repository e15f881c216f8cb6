package novel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/scripttools"
	"yuja/internal/pkg/storage"
)

// imageContentType 生成图片统一按 JPEG 存储
const imageContentType = "image/jpeg"

// GenerateCharacterImages 为所有缺参考图的角色生成参考图
// 逐个处理：每成功一个立即持久化，中途崩溃最多丢一项。
// 单个角色失败只记日志并继续，存储写入失败则中断（持久化失败必须上抛）。
// 返回本次生成的存储 key 列表。
func (s *novelService) GenerateCharacterImages(ctx context.Context, novelID string) ([]string, error) {
	characters, err := s.characterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find characters: %w", err)
	}

	var generated []string
	attempted := 0
	for _, c := range characters {
		if c.ReferenceImageURL != "" {
			continue
		}

		if attempted > 0 {
			if err := sleepBetweenItems(ctx); err != nil {
				return generated, err
			}
		}
		attempted++

		data, err := s.imageGen.GenerateImage(ctx, scripttools.CharacterImagePrompt(c), nil)
		if err != nil {
			log.Warn().Err(err).
				Str("character_id", c.ID).
				Str("name", c.Name).
				Msg("character image generation failed, skipping")
			continue
		}

		key := storage.ImageKey(novelID, storage.OwnerCharacter, c.ID)
		savedKey, err := s.store.Save(ctx, key, data, imageContentType)
		if err != nil {
			return generated, fmt.Errorf("save character image %s: %w", c.ID, err)
		}
		if err := s.characterRepo.Update(ctx, c.ID, bson.M{"reference_image_url": savedKey}); err != nil {
			return generated, fmt.Errorf("update character %s: %w", c.ID, err)
		}

		generated = append(generated, savedKey)
		log.Info().Str("character_id", c.ID).Str("name", c.Name).Msg("character image generated")
	}

	return generated, nil
}

// GenerateSceneImages 为所有缺插图的场景生成插图
// 提示词优先复用场景已有的结构化提示词；出场角色的参考图
// 作为一致性约束随调用上送（没有参考图的角色跳过）。
func (s *novelService) GenerateSceneImages(ctx context.Context, novelID string) ([]string, error) {
	scenes, err := s.sceneRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find scenes: %w", err)
	}

	var generated []string
	attempted := 0
	for _, scene := range scenes {
		if scene.HasImage() {
			continue
		}

		if attempted > 0 {
			if err := sleepBetweenItems(ctx); err != nil {
				return generated, err
			}
		}
		attempted++

		prompt, _, err := s.GetOrGenerateScenePrompt(ctx, novelID, scene.ID, false)
		if err != nil {
			return generated, fmt.Errorf("compose prompt for scene %s: %w", scene.ID, err)
		}

		refs, err := s.collectReferenceImages(ctx, novelID, scene)
		if err != nil {
			return generated, err
		}

		data, err := s.imageGen.GenerateImage(ctx, scripttools.FlattenScenePrompt(prompt), refs)
		if err != nil {
			log.Warn().Err(err).
				Str("scene_id", scene.ID).
				Str("title", scene.Title).
				Msg("scene image generation failed, skipping")
			continue
		}

		key := storage.ImageKey(novelID, storage.OwnerScene, scene.ID)
		savedKey, err := s.store.Save(ctx, key, data, imageContentType)
		if err != nil {
			return generated, fmt.Errorf("save scene image %s: %w", scene.ID, err)
		}
		if err := s.sceneRepo.Update(ctx, scene.ID, bson.M{"image_url": savedKey}); err != nil {
			return generated, fmt.Errorf("update scene %s: %w", scene.ID, err)
		}

		generated = append(generated, savedKey)
		log.Info().Str("scene_id", scene.ID).Str("title", scene.Title).Msg("scene image generated")
	}

	return generated, nil
}

// collectReferenceImages 收集场景出场角色的参考图字节
// 没有参考图的角色跳过；存储读取失败只记日志（少一张参考图不算致命）。
func (s *novelService) collectReferenceImages(ctx context.Context, novelID string, scene *novel.Scene) ([][]byte, error) {
	castCharacters, err := s.characterRepo.FindByIDs(ctx, scene.Casting)
	if err != nil {
		return nil, fmt.Errorf("find cast characters: %w", err)
	}

	var refs [][]byte
	for _, c := range castCharacters {
		if c.ReferenceImageURL == "" {
			continue
		}
		data, err := s.store.Load(ctx, c.ReferenceImageURL)
		if err != nil {
			log.Warn().Err(err).
				Str("character_id", c.ID).
				Str("key", c.ReferenceImageURL).
				Msg("failed to load reference image, generating without it")
			continue
		}
		refs = append(refs, data)
	}
	return refs, nil
}
