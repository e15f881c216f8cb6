package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"yuja/internal/ai/component"
	"yuja/internal/config"
	"yuja/internal/pkg/ratelimit"
)

// ServiceText 文本模型在限速闸门里的服务名
// 进程内共享：不同调用方打同一个服务都会被串行限速。
const ServiceText = "text-completion"

// maxAttempts 单次补全的最大尝试次数
const maxAttempts = 3

// retryBaseDelay 重试退避基准，第 n 次失败后等待 n*retryBaseDelay
const retryBaseDelay = 5 * time.Second

// 按提示词长度分档的超时上限
// 提示词越长服务端耗时越久，超时跟着放宽。
const (
	timeoutShort  = 60 * time.Second  // <= 10k 字符
	timeoutMedium = 90 * time.Second  // <= 20k 字符
	timeoutLong   = 120 * time.Second // > 20k 字符
)

// Client 文本模型客户端
// 职责: 封装补全调用的限速、超时分档与重试，对上层只暴露 prompt→text。
type Client struct {
	cfg       *config.AIConfig
	chatModel model.ChatModel
	gate      *ratelimit.Gate
}

// NewClient 创建文本模型客户端
func NewClient(ctx context.Context, cfg *config.AIConfig, gate *ratelimit.Gate) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured, text completion will fail")
	}

	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Client{
		cfg:       cfg,
		chatModel: chatModel,
		gate:      gate,
	}, nil
}

// Complete 单轮文本补全
// 每次尝试前都过一遍限速闸门；429/5xx/超时按递增退避重试，
// 重试耗尽后把最后一个错误返回给调用方，由调用方决定兜底。
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	timeout := timeoutForPrompt(prompt)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.gate.Wait(ctx, ServiceText); err != nil {
			return "", err
		}

		content, err := c.generateOnce(ctx, prompt, timeout)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts {
			break
		}

		delay := time.Duration(attempt) * retryBaseDelay
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("text completion failed, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("text completion failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := c.chatModel.Generate(callCtx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", err
	}
	if msg == nil || msg.Content == "" {
		return "", errors.New("empty completion response")
	}
	return msg.Content, nil
}

// timeoutForPrompt 按提示词字符数选择超时档位
func timeoutForPrompt(prompt string) time.Duration {
	n := len([]rune(prompt))
	switch {
	case n <= 10000:
		return timeoutShort
	case n <= 20000:
		return timeoutMedium
	default:
		return timeoutLong
	}
}

// isRetryable 判断错误是否值得重试
// 限速（429）、服务端错误（5xx）和超时重试；其余（如鉴权失败）直接放弃。
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit", "too many requests",
		"500", "502", "503", "504",
		"internal server error", "service unavailable",
		"timeout", "deadline exceeded", "connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
