package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"yuja/internal/config"
	"yuja/internal/pkg/ratelimit"
)

// ServiceImage 图片模型在限速闸门里的服务名
const ServiceImage = "image-generation"

// defaultImageModel 默认的多模态图片生成模型
const defaultImageModel = "gemini-2.5-flash-image-preview"

// imageTimeout 单次图片生成的超时上限
const imageTimeout = 120 * time.Second

// ImageClient 图片模型客户端
// 职责: 文本提示词（可附带参考图）→ 图片字节。
// 角色参考图生成不带参考图；场景插图带出场角色的参考图做一致性约束。
type ImageClient struct {
	client *genai.Client
	model  string
	gate   *ratelimit.Gate
}

// NewImageClient 创建图片模型客户端
func NewImageClient(ctx context.Context, cfg *config.ImageConfig, gate *ratelimit.Gate) (*ImageClient, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("image API key not configured, image generation will fail")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultImageModel
	}

	return &ImageClient{
		client: client,
		model:  model,
		gate:   gate,
	}, nil
}

// GenerateImage 生成一张图片
// referenceImages 为空时是纯文生图；非空时作为 JPEG 参考图一并上送。
// 重试策略与文本补全一致：429/5xx/超时按递增退避最多尝试三次。
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string, referenceImages [][]byte) ([]byte, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range referenceImages {
		if len(img) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(img, "image/jpeg"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.gate.Wait(ctx, ServiceImage); err != nil {
			return nil, err
		}

		data, err := c.generateOnce(ctx, contents, genCfg)
		if err == nil {
			return data, nil
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
			Msg("image generation failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("image generation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *ImageClient) generateOnce(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, cfg)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, errors.New("response contains no image data")
}
