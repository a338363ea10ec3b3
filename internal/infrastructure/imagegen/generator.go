// Package imagegen 封装第三方图像生成模型
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

var tracer = otel.Tracer("imagegen")

// ErrEmptyImage 模型没有返回图像
var ErrEmptyImage = errors.New("imagegen: provider returned no image")

// DefaultNegativePrompt 调用方未指定时使用的反向提示词
const DefaultNegativePrompt = "low quality, blurry, deformed, disfigured, bad anatomy, bad proportions, extra limbs, mutated hands, poorly drawn face, poorly drawn hands, text, watermark, logo, signature, cropped, out of frame, ugly, tiling, grainy, oversaturated"

// SceneNegativePrompt 以参考图合成场景时使用
const SceneNegativePrompt = "low quality, blurry, deformed, disfigured, bad anatomy, text, watermark, logo, signature, cropped, ugly, grainy"

// DefaultSimilarityStrength 参考图相似度
const DefaultSimilarityStrength = 0.9

// 场景画幅
const (
	SceneWidth  = 1024
	SceneHeight = 576
)

// 提示词长度上限
const (
	amazonPromptLimit  = 1024
	defaultPromptLimit = 10000
)

// Request 单张图像生成请求
type Request struct {
	Prompt         string
	NegativePrompt string
	Seed           int64
	Width          int
	Height         int

	// ReferenceImages 原始图像字节，支持的模型据此做图像变体
	ReferenceImages    [][]byte
	SimilarityStrength float64
}

// Result 生成结果
type Result struct {
	Image    []byte
	Seed     int64
	MimeType string
}

// Generator 图像生成器
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
	// ModelID 当前使用的模型标识
	ModelID() string
	// Name 提供方名称
	Name() string
}

// New 按配置创建生成器，返回的生成器带有追踪与指标
func New(ctx context.Context, cfg *config.ImageGenConfig) (Generator, error) {
	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case "bedrock":
		g, err = NewBedrockGenerator(ctx, &cfg.Bedrock)
	case "gemini":
		g, err = NewGeminiGenerator(ctx, &cfg.Gemini)
	case "mock":
		g = NewMockGenerator()
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(g), nil
}

// PromptLimit 模型允许的提示词长度
func PromptLimit(modelID string) int {
	if strings.HasPrefix(modelID, "amazon.") {
		return amazonPromptLimit
	}
	return defaultPromptLimit
}

// Truncate 超长时保留 limit-3 个字符并追加 ...
func Truncate(prompt string, limit int) string {
	runes := []rune(prompt)
	if len(runes) <= limit {
		return prompt
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// SnapDimension 取最接近的 64 的倍数，并限制在 [320, 4096]
func SnapDimension(v int) int {
	snapped := int(math.Round(float64(v)/64)) * 64
	return max(320, min(4096, snapped))
}

// AspectRatio 将宽高映射到模型支持的画幅比例
func AspectRatio(width, height int) string {
	if height <= 0 {
		return "1:1"
	}
	ratio := float64(width) / float64(height)
	switch {
	case ratio >= 2.2:
		return "21:9"
	case ratio >= 1.7:
		return "16:9"
	case ratio >= 1.4:
		return "3:2"
	case ratio >= 1.1:
		return "4:3"
	case ratio >= 0.9:
		return "1:1"
	case ratio >= 0.7:
		return "5:4"
	case ratio >= 0.55:
		return "2:3"
	case ratio >= 0.45:
		return "9:16"
	default:
		return "9:21"
	}
}

// AssetDimensions 资产图尺寸，环境类使用横幅
func AssetDimensions(t entity.AssetType) (int, int) {
	if t == entity.AssetTypeEnvironment {
		return SnapDimension(1280), SnapDimension(720)
	}
	return SnapDimension(1024), SnapDimension(1024)
}

// SceneDimensions 场景画幅
func SceneDimensions() (int, int) {
	return SnapDimension(SceneWidth), SnapDimension(SceneHeight)
}

// instrumented 为生成器附加追踪、指标与日志
type instrumented struct {
	next Generator
}

// Instrument 包装生成器
func Instrument(g Generator) Generator {
	if _, ok := g.(*instrumented); ok {
		return g
	}
	return &instrumented{next: g}
}

func (g *instrumented) ModelID() string { return g.next.ModelID() }

func (g *instrumented) Name() string { return g.next.Name() }

func (g *instrumented) Generate(ctx context.Context, req *Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "imagegen.Generate")
	defer span.End()

	provider, model := g.next.Name(), g.next.ModelID()
	span.SetAttributes(
		attribute.String("imagegen.provider", provider),
		attribute.String("imagegen.model", model),
		attribute.Int64("imagegen.seed", req.Seed),
		attribute.Int("imagegen.references", len(req.ReferenceImages)),
	)

	start := time.Now()
	res, err := g.next.Generate(ctx, req)
	metrics.ImageGenerationDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ImageGenerationTotal.WithLabelValues(provider, model, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "image generation failed",
			"provider", provider,
			"model", model,
			"error", err.Error(),
		)
		return nil, err
	}
	metrics.ImageGenerationTotal.WithLabelValues(provider, model, "success").Inc()
	logger.Debug(ctx, "image generated",
		"provider", provider,
		"model", model,
		"bytes", len(res.Image),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
