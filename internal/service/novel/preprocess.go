package novel

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrUnknownOperation 请求了未定义的预处理操作
var ErrUnknownOperation = errors.New("unknown preprocess operation")

// 预处理操作名（HTTP 请求体里使用）
const (
	OpWhitespace    = "whitespace"
	OpDedupNewlines = "dedup_newlines"
	OpParagraphs    = "paragraphs"
	OpDialogue      = "dialogue"
	OpSpecialChars  = "special_chars"
)

// PreprocessScript 按指定顺序对剧本执行预处理并持久化
// 操作名未知时整体拒绝，不做部分应用。
func (s *novelService) PreprocessScript(ctx context.Context, novelID string, operations []string) (string, error) {
	n, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return "", fmt.Errorf("find novel: %w", err)
	}

	script := n.Script
	for _, op := range operations {
		switch op {
		case OpWhitespace:
			script = s.normalizer.NormalizeWhitespace(script)
		case OpDedupNewlines:
			script = s.normalizer.RemoveDuplicateNewlines(script)
		case OpParagraphs:
			script = s.normalizer.NormalizeParagraphs(script)
		case OpDialogue:
			script = s.normalizer.NormalizeDialogue(script)
		case OpSpecialChars:
			script = s.normalizer.RemoveSpecialCharacters(script)
		default:
			return "", fmt.Errorf("%w: %s", ErrUnknownOperation, op)
		}
	}

	if script != n.Script {
		if err := s.novelRepo.Update(ctx, novelID, bson.M{"script": script}); err != nil {
			return "", fmt.Errorf("update script: %w", err)
		}
	}

	log.Info().
		Str("novel_id", novelID).
		Strs("operations", operations).
		Int("before_len", len(n.Script)).
		Int("after_len", len(script)).
		Msg("script preprocessed")

	return script, nil
}
