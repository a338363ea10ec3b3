package imagegen

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"storyforge-api/internal/config"
)

// GeminiGenerator Google GenAI Imagen 模型
type GeminiGenerator struct {
	client *genai.Client
	model  string
	vertex bool
}

// NewGeminiGenerator 创建 Imagen 生成器
func NewGeminiGenerator(ctx context.Context, cfg *config.GeminiConfig) (*GeminiGenerator, error) {
	if cfg.Model == "" {
		return nil, errors.New("gemini model is required")
	}

	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI, APIKey: cfg.APIKey}
	vertex := cfg.Backend == "vertex_ai"
	if vertex {
		cc = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Project,
			Location: cfg.Location,
		}
	} else if cfg.APIKey == "" {
		return nil, errors.New("gemini api_key is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model, vertex: vertex}, nil
}

// ModelID 模型标识
func (g *GeminiGenerator) ModelID() string {
	return g.model
}

// Name 提供方名称
func (g *GeminiGenerator) Name() string {
	return "Google Imagen"
}

// Generate 文生图，Imagen 不接收参考图
func (g *GeminiGenerator) Generate(ctx context.Context, req *Request) (*Result, error) {
	negative := req.NegativePrompt
	if negative == "" {
		negative = DefaultNegativePrompt
	}

	gc := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    imagenAspectRatio(req.Width, req.Height),
		NegativePrompt: negative,
		OutputMIMEType: "image/png",
	}
	// 只有 Vertex 支持固定种子，且要求关闭水印
	if g.vertex {
		seed := int32(req.Seed % novaSeedModulus)
		gc.Seed = &seed
		gc.AddWatermark = false
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.model, Truncate(req.Prompt, PromptLimit(g.model)), gc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image with %s: %w", g.model, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, ErrEmptyImage
	}
	img := resp.GeneratedImages[0]
	if img.RAIFilteredReason != "" {
		return nil, fmt.Errorf("imagen filtered the request: %s", img.RAIFilteredReason)
	}

	mime := img.Image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &Result{Image: img.Image.ImageBytes, Seed: req.Seed, MimeType: mime}, nil
}

// imagenAspectRatio Imagen 只支持 1:1、3:4、4:3、9:16、16:9
func imagenAspectRatio(width, height int) string {
	switch AspectRatio(width, height) {
	case "21:9", "16:9":
		return "16:9"
	case "3:2", "4:3":
		return "4:3"
	case "1:1", "5:4":
		return "1:1"
	case "2:3":
		return "3:4"
	default:
		return "9:16"
	}
}
