package entity

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// AssetType 资产类型
type AssetType string

const (
	AssetTypeCharacter   AssetType = "character"
	AssetTypeEnvironment AssetType = "environment"
	AssetTypeNature      AssetType = "nature"
	AssetTypeProp        AssetType = "prop"
)

// AssetTypes 全部资产类型，按展示顺序
var AssetTypes = []AssetType{AssetTypeCharacter, AssetTypeEnvironment, AssetTypeNature, AssetTypeProp}

// Valid 校验类型取值
func (t AssetType) Valid() bool {
	return slices.Contains(AssetTypes, t)
}

// GenerationStatus 资产图像生成状态
type GenerationStatus string

const (
	GenerationStatusIdle       GenerationStatus = "idle"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// DefaultAssetNegativePrompt 创建资产时的默认反向提示词
const DefaultAssetNegativePrompt = "low quality, blurry, deformed"

// InitialNegativePrompt 首次生成且用户未给反向提示词时使用
const InitialNegativePrompt = "low quality, blurry, deformed, disfigured, bad anatomy, text, watermark"

// MaxSeed 随机种子上界（不含）
const MaxSeed int64 = 2147483647

// RandomSeed 返回 [0, MaxSeed) 内的随机种子
func RandomSeed() int64 {
	return rand.Int64N(MaxSeed)
}

var (
	// ErrAssetAlreadyLocked 重复锁定
	ErrAssetAlreadyLocked = errors.New("asset is already locked")
	// ErrAssetLocked 锁定资产不可修改
	ErrAssetLocked = errors.New("asset is locked")
)

// Asset 可复用的视觉资产
type Asset struct {
	ID               string            `json:"id" gorm:"type:varchar(32);primaryKey"`
	ProjectID        string            `json:"project_id" gorm:"type:varchar(32);index;not null"`
	Name             string            `json:"name" gorm:"type:varchar(255);not null"`
	Type             AssetType         `json:"type" gorm:"type:varchar(32);index;not null"`
	Description      string            `json:"description" gorm:"type:text"`
	VisualPrompt     string            `json:"visual_prompt" gorm:"type:text"`
	NegativePrompt   string            `json:"negative_prompt" gorm:"type:text"`
	Seed             int64             `json:"seed"`
	Version          int               `json:"version" gorm:"default:1"`
	Locked           bool              `json:"locked" gorm:"default:false"`
	ThumbnailURL     string            `json:"thumbnail_url" gorm:"type:text"`
	GenerationStatus GenerationStatus  `json:"generation_status" gorm:"type:varchar(32);default:'idle'"`
	Metadata         datatypes.JSONMap `json:"metadata"`
	UsageCount       int64             `json:"usage_count" gorm:"->;-:migration"`
	CreatedAt        time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Asset) TableName() string {
	return "assets"
}

// NewAsset 创建资产，有提示词时直接进入生成中
func NewAsset(projectID, name string, assetType AssetType, seed int64) *Asset {
	now := time.Now()
	return &Asset{
		ID:               NewID(PrefixAsset),
		ProjectID:        projectID,
		Name:             name,
		Type:             assetType,
		NegativePrompt:   DefaultAssetNegativePrompt,
		Seed:             seed,
		Version:          1,
		GenerationStatus: GenerationStatusIdle,
		Metadata:         datatypes.JSONMap{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// HasPrompt 是否有可用于生成的提示词
func (a *Asset) HasPrompt() bool {
	return strings.TrimSpace(a.VisualPrompt) != ""
}

// EffectiveNegativePrompt 返回反向提示词，空值时退回默认值
func (a *Asset) EffectiveNegativePrompt() string {
	if strings.TrimSpace(a.NegativePrompt) == "" {
		return DefaultAssetNegativePrompt
	}
	return a.NegativePrompt
}

// InitialNegativePrompt 首次生成使用的反向提示词
func (a *Asset) InitialNegativePrompt() string {
	if p := strings.TrimSpace(a.NegativePrompt); p == "" || p == DefaultAssetNegativePrompt {
		return InitialNegativePrompt
	}
	return a.NegativePrompt
}

// IsEditable 锁定后不可编辑、重生成或删除
func (a *Asset) IsEditable() bool {
	return !a.Locked
}

// Lock 锁定资产，锁定不可逆
func (a *Asset) Lock() error {
	if a.Locked {
		return ErrAssetAlreadyLocked
	}
	a.Locked = true
	a.UpdatedAt = time.Now()
	return nil
}

// StartGeneration 进入生成中状态
func (a *Asset) StartGeneration() error {
	if a.Locked {
		return ErrAssetLocked
	}
	a.GenerationStatus = GenerationStatusGenerating
	a.UpdatedAt = time.Now()
	return nil
}

// Snapshot 基于当前字段生成一条版本记录
func (a *Asset) Snapshot() *AssetVersion {
	return &AssetVersion{
		ID:             NewID(PrefixAssetVersion),
		AssetID:        a.ID,
		Version:        a.Version,
		VisualPrompt:   a.VisualPrompt,
		NegativePrompt: a.NegativePrompt,
		Seed:           a.Seed,
		ThumbnailURL:   a.ThumbnailURL,
		Metadata:       a.Metadata,
		CreatedAt:      time.Now(),
	}
}

// ApplyImage 以新图像和种子推进版本，返回与之配对的版本记录
func (a *Asset) ApplyImage(thumbnailURL string, seed int64) *AssetVersion {
	a.ThumbnailURL = thumbnailURL
	a.Seed = seed
	a.Version++
	a.GenerationStatus = GenerationStatusCompleted
	a.UpdatedAt = time.Now()
	return a.Snapshot()
}

// AssetVersion 资产版本历史，只追加不修改
type AssetVersion struct {
	ID             string            `json:"id" gorm:"type:varchar(32);primaryKey"`
	AssetID        string            `json:"asset_id" gorm:"type:varchar(32);index;not null"`
	Version        int               `json:"version" gorm:"not null"`
	VisualPrompt   string            `json:"visual_prompt" gorm:"type:text"`
	NegativePrompt string            `json:"negative_prompt" gorm:"type:text"`
	Seed           int64             `json:"seed"`
	ThumbnailURL   string            `json:"thumbnail_url" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AssetVersion) TableName() string {
	return "asset_versions"
}

// AssetVariant 批量生成的候选图
type AssetVariant struct {
	ID           string    `json:"id" gorm:"type:varchar(32);primaryKey"`
	AssetID      string    `json:"asset_id" gorm:"type:varchar(32);index;not null"`
	VariantIndex int       `json:"variant_index" gorm:"not null"`
	Seed         int64     `json:"seed"`
	ThumbnailURL string    `json:"thumbnail_url" gorm:"type:text"`
	Selected     bool      `json:"selected" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AssetVariant) TableName() string {
	return "asset_variants"
}

// VariantSeedStride 候选图之间的种子步长
const VariantSeedStride int64 = 7919

// VariantSeed 第 index 张候选图（从 0 开始）的种子
func VariantSeed(base int64, index int) int64 {
	return base + int64(index+1)*VariantSeedStride
}
