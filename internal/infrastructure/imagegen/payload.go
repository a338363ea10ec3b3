package imagegen

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// modelFamily Bedrock 上的请求体格式
type modelFamily int

const (
	familyNova modelFamily = iota
	familySD3
	familySDXL
)

const sdxlModelID = "stability.stable-diffusion-xl-v1"

// 种子取模上界
const (
	novaSeedModulus      int64 = 2147483647
	stabilitySeedModulus int64 = 4294967295
)

func familyOf(modelID string) modelFamily {
	switch {
	case strings.HasPrefix(modelID, "stability.sd3"):
		return familySD3
	case modelID == sdxlModelID:
		return familySDXL
	default:
		return familyNova
	}
}

// Nova Canvas / Titan
type novaPayload struct {
	TaskType              string               `json:"taskType"`
	TextToImageParams     *novaTextParams      `json:"textToImageParams,omitempty"`
	ImageVariationParams  *novaVariationParams `json:"imageVariationParams,omitempty"`
	ImageGenerationConfig novaGenerationConfig `json:"imageGenerationConfig"`
}

type novaTextParams struct {
	Text         string `json:"text"`
	NegativeText string `json:"negativeText,omitempty"`
}

type novaVariationParams struct {
	Images             []string `json:"images"`
	Text               string   `json:"text"`
	SimilarityStrength float64  `json:"similarityStrength"`
	NegativeText       string   `json:"negativeText,omitempty"`
}

type novaGenerationConfig struct {
	NumberOfImages int     `json:"numberOfImages"`
	Quality        string  `json:"quality"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	CfgScale       float64 `json:"cfgScale"`
	Seed           int64   `json:"seed"`
}

// Stability SD3.x / Ultra
type sd3Payload struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Mode           string `json:"mode"`
	AspectRatio    string `json:"aspect_ratio"`
	OutputFormat   string `json:"output_format"`
	Seed           int64  `json:"seed"`
}

// Stability SDXL
type sdxlPayload struct {
	TextPrompts []weightedPrompt `json:"text_prompts"`
	CfgScale    int              `json:"cfg_scale"`
	Seed        int64            `json:"seed"`
	Steps       int              `json:"steps"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	StylePreset string           `json:"style_preset"`
}

type weightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// invokeResponse 三种模型响应的并集
type invokeResponse struct {
	Error     *string  `json:"error"`
	Images    []string `json:"images"`
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

// buildPayload 按模型族生成 InvokeModel 请求体
func buildPayload(modelID string, req *Request) ([]byte, error) {
	negative := req.NegativePrompt
	if negative == "" {
		negative = DefaultNegativePrompt
	}
	prompt := Truncate(req.Prompt, PromptLimit(modelID))

	var payload any
	switch familyOf(modelID) {
	case familySD3:
		payload = sd3Payload{
			Prompt:         prompt,
			NegativePrompt: negative,
			Mode:           "text-to-image",
			AspectRatio:    AspectRatio(req.Width, req.Height),
			OutputFormat:   "png",
			Seed:           req.Seed % stabilitySeedModulus,
		}
	case familySDXL:
		payload = sdxlPayload{
			TextPrompts: []weightedPrompt{
				{Text: prompt, Weight: 1},
				{Text: negative, Weight: -1},
			},
			CfgScale:    10,
			Seed:        req.Seed % stabilitySeedModulus,
			Steps:       50,
			Width:       req.Width,
			Height:      req.Height,
			StylePreset: "cinematic",
		}
	default:
		p := novaPayload{
			ImageGenerationConfig: novaGenerationConfig{
				NumberOfImages: 1,
				Quality:        "premium",
				Height:         req.Height,
				Width:          req.Width,
				CfgScale:       7.5,
				Seed:           req.Seed % novaSeedModulus,
			},
		}
		if len(req.ReferenceImages) > 0 && strings.HasPrefix(modelID, "amazon.") {
			images := make([]string, len(req.ReferenceImages))
			for i, img := range req.ReferenceImages {
				images[i] = base64.StdEncoding.EncodeToString(img)
			}
			strength := req.SimilarityStrength
			if strength == 0 {
				strength = DefaultSimilarityStrength
			}
			p.TaskType = "IMAGE_VARIATION"
			p.ImageVariationParams = &novaVariationParams{
				Images:             images,
				Text:               prompt,
				SimilarityStrength: strength,
				NegativeText:       negative,
			}
		} else {
			p.TaskType = "TEXT_IMAGE"
			p.TextToImageParams = &novaTextParams{Text: prompt, NegativeText: negative}
		}
		payload = p
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return body, nil
}

// parseResponse 取出第一张图像并解码
func parseResponse(modelID string, body []byte) ([]byte, error) {
	var resp invokeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil && *resp.Error != "" {
		return nil, fmt.Errorf("bedrock generation error: %s", *resp.Error)
	}

	var encoded string
	if familyOf(modelID) == familySDXL {
		if len(resp.Artifacts) > 0 {
			encoded = resp.Artifacts[0].Base64
		}
	} else if len(resp.Images) > 0 {
		encoded = resp.Images[0]
	}
	if encoded == "" {
		return nil, ErrEmptyImage
	}

	img, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
