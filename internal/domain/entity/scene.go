package entity

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// RenderStatus 场景渲染状态
type RenderStatus string

const (
	RenderStatusDraft     RenderStatus = "draft"
	RenderStatusRendering RenderStatus = "rendering"
	RenderStatusCompleted RenderStatus = "completed"
	RenderStatusFailed    RenderStatus = "failed"
)

// 场景默认描述
const (
	DefaultSceneMood        = "neutral"
	DefaultSceneCameraAngle = "medium shot"
	DefaultSceneLighting    = "natural"
	DefaultSceneRole        = "primary"
	DefaultScenePosition    = "center"
)

// Scene 由剧本编译或手动创建的分镜
type Scene struct {
	ID             string            `json:"id" gorm:"type:varchar(32);primaryKey"`
	ProjectID      string            `json:"project_id" gorm:"type:varchar(32);index;not null"`
	ScriptID       *string           `json:"script_id" gorm:"type:varchar(32);index"`
	SceneNumber    int               `json:"scene_number" gorm:"not null"`
	Title          string            `json:"title" gorm:"type:varchar(255)"`
	Description    string            `json:"description" gorm:"type:text"`
	Mood           string            `json:"mood" gorm:"type:varchar(100)"`
	CameraAngle    string            `json:"camera_angle" gorm:"type:varchar(100)"`
	Lighting       string            `json:"lighting" gorm:"type:varchar(100)"`
	RenderStatus   RenderStatus      `json:"render_status" gorm:"type:varchar(32);default:'draft'"`
	RenderedURL    string            `json:"rendered_url" gorm:"type:text"`
	RenderMetadata datatypes.JSONMap `json:"render_metadata"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Scene) TableName() string {
	return "scenes"
}

// NewScene 以默认镜头参数创建场景
func NewScene(projectID string, number int) *Scene {
	now := time.Now()
	return &Scene{
		ID:           NewID(PrefixScene),
		ProjectID:    projectID,
		SceneNumber:  number,
		Title:        DefaultSceneTitle(number),
		Mood:         DefaultSceneMood,
		CameraAngle:  DefaultSceneCameraAngle,
		Lighting:     DefaultSceneLighting,
		RenderStatus: RenderStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DefaultSceneTitle 第 n 场的默认标题
func DefaultSceneTitle(n int) string {
	return fmt.Sprintf("Scene %d", n)
}

// IsRendered 是否已有完成的渲染
func (s *Scene) IsRendered() bool {
	return s.RenderStatus == RenderStatusCompleted && s.RenderedURL != ""
}

// SceneAsset 场景与资产的关联
type SceneAsset struct {
	SceneID      string    `json:"scene_id" gorm:"type:varchar(32);primaryKey"`
	AssetID      string    `json:"asset_id" gorm:"type:varchar(32);primaryKey;index"`
	Role         string    `json:"role" gorm:"type:varchar(64);default:'primary'"`
	PositionHint string    `json:"position_hint" gorm:"type:varchar(64);default:'center'"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (SceneAsset) TableName() string {
	return "scene_assets"
}

// NewSceneAsset 创建关联，空角色与站位使用默认值
func NewSceneAsset(sceneID, assetID, role, position string) *SceneAsset {
	if role == "" {
		role = DefaultSceneRole
	}
	if position == "" {
		position = DefaultScenePosition
	}
	return &SceneAsset{
		SceneID:      sceneID,
		AssetID:      assetID,
		Role:         role,
		PositionHint: position,
		CreatedAt:    time.Now(),
	}
}

// AssignedAsset 场景中的资产及其角色、站位
type AssignedAsset struct {
	Asset
	SceneID      string `json:"-"`
	Role         string `json:"role"`
	PositionHint string `json:"position_hint"`
}

// SceneVersion 场景渲染历史
type SceneVersion struct {
	ID             string            `json:"id" gorm:"type:varchar(32);primaryKey"`
	SceneID        string            `json:"scene_id" gorm:"type:varchar(32);index;not null"`
	Version        int               `json:"version" gorm:"not null"`
	RenderedURL    string            `json:"rendered_url" gorm:"type:text"`
	RenderMetadata datatypes.JSONMap `json:"render_metadata"`
	AssetIDs       StringList        `json:"asset_ids"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (SceneVersion) TableName() string {
	return "scene_versions"
}
