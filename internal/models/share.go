package models

import (
	"time"
)

// 密码哈希方案
const (
	HashSchemeNone   = "none"          // 分享未设置密码
	HashSchemeLegacy = "legacy-digest" // 旧版 SHA-256 摘要，验证成功后迁移到 bcrypt
	HashSchemeBcrypt = "bcrypt"
)

// Share 对应 shares 表，一条记录代表一个已上传文件及其访问策略
type Share struct {
	ID                string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID            string     `gorm:"type:varchar(36);not null;index" json:"user_id"` // 外部身份系统中的上传者ID
	OriginalName      string     `gorm:"type:varchar(255);not null" json:"original_name"`
	StoredPath        string     `gorm:"type:varchar(512);not null" json:"stored_path"`         // 对象存储中的路径
	Token             string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"token"`    // 分享链接中的公开标识
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`                                  // 可选：过期时间
	MaxDownloads      *int       `json:"max_downloads,omitempty"`                               // 可选：下载次数上限
	DownloadCount     int        `gorm:"not null;default:0" json:"download_count"`              // 已消耗的下载次数
	PasswordHash      *string    `gorm:"type:varchar(255)" json:"-"`                            // 可选：访问密码哈希
	HashScheme        string     `gorm:"type:varchar(16);not null;default:none" json:"hash_scheme"`
	EncryptionEnabled bool       `gorm:"not null;default:false" json:"encryption_enabled"`
	EncryptionIV      *string    `gorm:"type:varchar(64)" json:"encryption_iv,omitempty"` // base64 编码的 96-bit IV，加密分享必有
	Revoked           bool       `gorm:"column:is_revoked;not null;default:false" json:"is_revoked"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定 GORM 使用的表名
func (Share) TableName() string {
	return "shares"
}

// Protected 返回该分享是否设置了访问密码
func (s *Share) Protected() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}
