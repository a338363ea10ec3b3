package entity

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList 在 PostgreSQL 中映射为 text[]，其他方言退化为数组字面量文本
type StringList []string

// Value 实现 driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(l).Value()
}

// Scan 实现 sql.Scanner
func (l *StringList) Scan(src any) error {
	return (*pq.StringArray)(l).Scan(src)
}

// GormDataType 通用类型名
func (StringList) GormDataType() string {
	return "text[]"
}

// GormDBDataType 按方言返回列类型
func (StringList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
