package dto

// CreateExportRequest 创建导出请求
type CreateExportRequest struct {
	Type string `json:"type"`
}
