package imagegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"storyforge-api/internal/config"
)

// invoker bedrockruntime.Client 的最小子集
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockGenerator AWS Bedrock 图像模型
type BedrockGenerator struct {
	client  invoker
	modelID string
}

// NewBedrockGenerator 创建 Bedrock 生成器，未配置密钥时使用默认凭证链
func NewBedrockGenerator(ctx context.Context, cfg *config.BedrockConfig) (*BedrockGenerator, error) {
	if cfg.ModelID == "" {
		return nil, errors.New("bedrock model_id is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg.ModelID), nil
}

func newBedrockGenerator(client invoker, modelID string) *BedrockGenerator {
	return &BedrockGenerator{client: client, modelID: modelID}
}

// ModelID 模型标识
func (g *BedrockGenerator) ModelID() string {
	return g.modelID
}

// Name 提供方名称
func (g *BedrockGenerator) Name() string {
	return "AWS Bedrock"
}

// Generate 调用 InvokeModel 生成一张图像
func (g *BedrockGenerator) Generate(ctx context.Context, req *Request) (*Result, error) {
	body, err := buildPayload(g.modelID, req)
	if err != nil {
		return nil, err
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model %s: %w", g.modelID, err)
	}

	img, err := parseResponse(g.modelID, out.Body)
	if err != nil {
		return nil, err
	}
	return &Result{Image: img, Seed: req.Seed, MimeType: "image/png"}, nil
}
