package models

import (
	"time"

	"gorm.io/gorm"
)

// Channel 网关凭据配置（支持多商户 POS）
type Channel struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"not null" json:"name"`             // 配置名称
	Code       string         `gorm:"uniqueIndex;not null" json:"code"` // 配置代号
	ConfigJSON JSON           `gorm:"type:json" json:"config_json"`     // 网关配置（pos_id、密钥等）
	Active     bool           `gorm:"index;not null;default:true" json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Channel) TableName() string {
	return "channels"
}
