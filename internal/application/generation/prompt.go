package generation

import (
	"strings"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/infrastructure/imagegen"
)

// ScenePrompt 组合场景渲染提示词，空片段跳过，超出模型上限时截断
func ScenePrompt(visualStyle string, scene *entity.Scene, assets []*entity.AssignedAsset, modelID string) string {
	parts := make([]string, 0, 6+len(assets))

	if style := strings.TrimSpace(visualStyle); style != "" {
		parts = append(parts, style+" style cinematic storyboard frame")
	} else {
		parts = append(parts, "cinematic storyboard frame")
	}
	parts = appendNonEmpty(parts, scene.Description, "")
	parts = appendNonEmpty(parts, scene.Mood, " mood")
	parts = appendNonEmpty(parts, scene.CameraAngle, "")
	parts = appendNonEmpty(parts, scene.Lighting, " lighting")
	parts = append(parts, "highly detailed, sharp focus")

	for _, a := range assets {
		if a.Type == entity.AssetTypeEnvironment {
			parts = append(parts, "set in "+a.Name)
		} else {
			parts = append(parts, a.Name)
		}
	}

	return imagegen.Truncate(strings.Join(parts, ", "), imagegen.PromptLimit(modelID))
}

func appendNonEmpty(parts []string, value, suffix string) []string {
	if strings.TrimSpace(value) == "" {
		return parts
	}
	return append(parts, value+suffix)
}
