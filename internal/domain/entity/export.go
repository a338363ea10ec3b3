package entity

import (
	"strconv"
	"time"
)

// ExportType 导出类型
type ExportType string

const (
	ExportTypePDF            ExportType = "pdf"
	ExportTypeImageSequence  ExportType = "image_sequence"
	ExportTypeMetadataBundle ExportType = "metadata_bundle"
)

// Valid 校验导出类型
func (t ExportType) Valid() bool {
	switch t {
	case ExportTypePDF, ExportTypeImageSequence, ExportTypeMetadataBundle:
		return true
	}
	return false
}

// Extension 导出文件扩展名
func (t ExportType) Extension() string {
	if t == ExportTypePDF {
		return "pdf"
	}
	return "zip"
}

// ExportStatus 导出状态
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// Export 导出记录
type Export struct {
	ID           string       `json:"id" gorm:"type:varchar(32);primaryKey"`
	ProjectID    string       `json:"project_id" gorm:"type:varchar(32);index;not null"`
	Type         ExportType   `json:"type" gorm:"type:varchar(32);not null"`
	Status       ExportStatus `json:"status" gorm:"type:varchar(32);default:'pending'"`
	FileURL      string       `json:"file_url" gorm:"type:text"`
	ErrorMessage string       `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Export) TableName() string {
	return "exports"
}

// NewExport 创建导出记录
func NewExport(projectID string, exportType ExportType) *Export {
	now := time.Now()
	return &Export{
		ID:        NewID(PrefixExport),
		ProjectID: projectID,
		Type:      exportType,
		Status:    ExportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FileName 导出文件名 <project>_<type>_<unixms>.<ext>
func (e *Export) FileName(at time.Time) string {
	return e.ProjectID + "_" + string(e.Type) + "_" + strconv.FormatInt(at.UnixMilli(), 10) + "." + e.Type.Extension()
}
