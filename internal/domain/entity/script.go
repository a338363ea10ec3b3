package entity

import (
	"strings"
	"time"
)

// Script 剧本原文
type Script struct {
	ID        string    `json:"id" gorm:"type:varchar(32);primaryKey"`
	ProjectID string    `json:"project_id" gorm:"type:varchar(32);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:text"`
	Compiled  bool      `json:"compiled" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Script) TableName() string {
	return "scripts"
}

// NewScript 创建剧本
func NewScript(projectID, title, content string) *Script {
	now := time.Now()
	return &Script{
		ID:        NewID(PrefixScript),
		ProjectID: projectID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsBlank 内容是否为空白
func (s *Script) IsBlank() bool {
	return strings.TrimSpace(s.Content) == ""
}
