package entity

import (
	"time"
)

// JobType 后台任务类型
type JobType string

const (
	JobTypeAssetInitial    JobType = "asset_initial"
	JobTypeAssetRegenerate JobType = "asset_regenerate"
	JobTypeAssetVariants   JobType = "asset_variants"
	JobTypeSceneRender     JobType = "scene_render"
	JobTypeExportBuild     JobType = "export_build"
)

// GenerationJob 一次后台生成任务的描述，不落库
type GenerationJob struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	ProjectID string    `json:"project_id"`
	TargetID  string    `json:"target_id"`
	Seed      int64     `json:"seed,omitempty"`
	Variants  int       `json:"variants,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewGenerationJob 创建任务
func NewGenerationJob(jobType JobType, projectID, targetID string) *GenerationJob {
	return &GenerationJob{
		ID:        NewID(PrefixJob),
		Type:      jobType,
		ProjectID: projectID,
		TargetID:  targetID,
		CreatedAt: time.Now(),
	}
}

// WithSeed 设置种子
func (j *GenerationJob) WithSeed(seed int64) *GenerationJob {
	j.Seed = seed
	return j
}

// WithVariants 设置候选图数量
func (j *GenerationJob) WithVariants(n int) *GenerationJob {
	j.Variants = n
	return j
}
