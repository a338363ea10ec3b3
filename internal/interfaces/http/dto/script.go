package dto

import (
	"storyforge-api/internal/application/storyboard"
)

// CreateScriptRequest 创建剧本请求
type CreateScriptRequest struct {
	Title   string `json:"title" binding:"max=255"`
	Content string `json:"content"`
}

// ToInput 转换为业务参数
func (r *CreateScriptRequest) ToInput() storyboard.ScriptInput {
	return storyboard.ScriptInput{Title: r.Title, Content: r.Content}
}

// UpdateScriptRequest 更新剧本请求
type UpdateScriptRequest struct {
	Title   *string `json:"title,omitempty" binding:"omitempty,max=255"`
	Content *string `json:"content,omitempty"`
}

// ToPatch 转换为业务参数
func (r *UpdateScriptRequest) ToPatch() storyboard.ScriptPatch {
	return storyboard.ScriptPatch{Title: r.Title, Content: r.Content}
}
