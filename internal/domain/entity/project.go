package entity

import (
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Valid 校验状态取值
func (s ProjectStatus) Valid() bool {
	return s == ProjectStatusActive || s == ProjectStatusArchived
}

// 项目默认生成参数
const (
	DefaultVisualStyle    = "anime cinematic realism"
	DefaultBaseModel      = "SDXL"
	DefaultSamplerSetting = "DPM++"
)

// Project 分镜项目实体
type Project struct {
	ID             string        `json:"id" gorm:"type:varchar(32);primaryKey"`
	Name           string        `json:"name" gorm:"type:varchar(255);not null"`
	VisualStyle    string        `json:"visual_style" gorm:"type:varchar(255)"`
	BaseModel      string        `json:"base_model" gorm:"type:varchar(100)"`
	DefaultSampler string        `json:"default_sampler" gorm:"type:varchar(100)"`
	Status         ProjectStatus `json:"status" gorm:"type:varchar(50);default:'active'"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(name string) *Project {
	now := time.Now()
	return &Project{
		ID:             NewID(PrefixProject),
		Name:           name,
		VisualStyle:    DefaultVisualStyle,
		BaseModel:      DefaultBaseModel,
		DefaultSampler: DefaultSamplerSetting,
		Status:         ProjectStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsArchived 项目是否已归档
func (p *Project) IsArchived() bool {
	return p.Status == ProjectStatusArchived
}
