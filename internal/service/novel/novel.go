package novel

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/id"
	"yuja/internal/pkg/storage"
)

// ErrEmptyTitle 创建小说时标题为空
var ErrEmptyTitle = errors.New("novel title is empty")

// ErrEmptyScript 创建小说时剧本为空
var ErrEmptyScript = errors.New("novel script is empty")

// CreateNovel 创建小说并保存原始剧本
func (s *novelService) CreateNovel(ctx context.Context, title, description, script string) (*novel.Novel, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if script == "" {
		return nil, ErrEmptyScript
	}

	n := &novel.Novel{
		ID:          id.New(),
		Title:       title,
		Description: description,
		Script:      script,
	}
	if err := s.novelRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create novel: %w", err)
	}

	log.Info().Str("novel_id", n.ID).Str("title", title).Msg("novel created")
	return n, nil
}

// GetNovel 获取小说信息
func (s *novelService) GetNovel(ctx context.Context, novelID string) (*novel.Novel, error) {
	n, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find novel: %w", err)
	}
	return n, nil
}

// ListNovels 获取全部小说
func (s *novelService) ListNovels(ctx context.Context) ([]*novel.Novel, error) {
	novels, err := s.novelRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	return novels, nil
}

// DeleteNovel 删除小说及其全部派生数据
// 先清理图片（尽力而为），再依次软删场景、角色、章节和小说本身。
func (s *novelService) DeleteNovel(ctx context.Context, novelID string) error {
	n, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return fmt.Errorf("find novel: %w", err)
	}

	s.deleteNovelImages(ctx, n.ID)

	if err := s.sceneRepo.DeleteByNovelID(ctx, novelID); err != nil {
		return fmt.Errorf("delete scenes: %w", err)
	}
	if err := s.characterRepo.DeleteByNovelID(ctx, novelID); err != nil {
		return fmt.Errorf("delete characters: %w", err)
	}
	if err := s.chapterRepo.DeleteByNovelID(ctx, novelID); err != nil {
		return fmt.Errorf("delete chapters: %w", err)
	}
	if err := s.novelRepo.Delete(ctx, novelID); err != nil {
		return fmt.Errorf("delete novel: %w", err)
	}

	log.Info().Str("novel_id", novelID).Msg("novel deleted")
	return nil
}

// deleteNovelImages 清理小说已生成的全部图片
// 按小说的 key 前缀整体清理；存储侧删除失败只记日志，不阻断小说删除。
func (s *novelService) deleteNovelImages(ctx context.Context, novelID string) {
	prefix := storage.NovelPrefix(novelID)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		log.Warn().Err(err).Str("prefix", prefix).Msg("failed to delete novel images")
	}
}
