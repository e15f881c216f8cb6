package novel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"yuja/internal/model/novel"
	"yuja/internal/pkg/id"
	"yuja/internal/pkg/scripttools"
)

// SplitChapters 按标记行切分章节
// 每次切分整体重建：旧章节（连同其下场景）先删后建。
// 剧本里没有标记行时返回空列表，已有章节保持不动。
func (s *novelService) SplitChapters(ctx context.Context, novelID string) ([]*novel.Chapter, error) {
	n, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find novel: %w", err)
	}

	segments := scripttools.SplitChapters(n.Script)
	if len(segments) == 0 {
		log.Info().Str("novel_id", novelID).Msg("no chapter markers found in script")
		return nil, nil
	}

	// 旧章节的场景一并清理，避免悬挂在已不存在的章节下
	oldChapters, err := s.chapterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find chapters: %w", err)
	}
	for _, ch := range oldChapters {
		if err := s.sceneRepo.DeleteByChapterID(ctx, ch.ID); err != nil {
			return nil, fmt.Errorf("delete chapter scenes: %w", err)
		}
	}
	if err := s.chapterRepo.DeleteByNovelID(ctx, novelID); err != nil {
		return nil, fmt.Errorf("delete chapters: %w", err)
	}

	chapters := make([]*novel.Chapter, 0, len(segments))
	for _, seg := range segments {
		ch := &novel.Chapter{
			ID:            id.New(),
			NovelID:       novelID,
			ChapterNumber: seg.Number,
			Title:         seg.Title,
			Content:       seg.Content,
		}
		if err := s.chapterRepo.Create(ctx, ch); err != nil {
			return nil, fmt.Errorf("create chapter %d: %w", seg.Number, err)
		}
		chapters = append(chapters, ch)
	}

	log.Info().
		Str("novel_id", novelID).
		Int("chapters", len(chapters)).
		Msg("chapters split")

	return chapters, nil
}

// GetChapters 获取小说的所有章节
func (s *novelService) GetChapters(ctx context.Context, novelID string) ([]*novel.Chapter, error) {
	chapters, err := s.chapterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("find chapters: %w", err)
	}
	return chapters, nil
}
