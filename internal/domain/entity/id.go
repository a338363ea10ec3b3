// Package entity 定义领域实体
package entity

import (
	"strings"

	"github.com/google/uuid"
)

// ID 前缀
const (
	PrefixProject      = "PRJ"
	PrefixAsset        = "AST"
	PrefixAssetVersion = "AV"
	PrefixAssetVariant = "VAR"
	PrefixScript       = "SCR"
	PrefixScene        = "SCN"
	PrefixSceneVersion = "SV"
	PrefixExport       = "EXP"
	PrefixJob          = "JOB"
)

// NewID 生成形如 PRJ_1A2B3C4D 的业务 ID
func NewID(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}
