// Package entity 定义领域实体
package entity

import (
	"time"
)

// Profile 用户档案
// 承载订阅计划与生成额度
type Profile struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name,omitempty"`
	Plan             string    `json:"plan"`
	CreditsRemaining int       `json:"credits_remaining"` // 非负
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasCredit 是否还有可用额度
func (p *Profile) HasCredit() bool {
	return p.CreditsRemaining > 0
}
