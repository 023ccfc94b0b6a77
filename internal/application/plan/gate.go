// Package plan 提供订阅计划与可选能力的门控策略
package plan

import (
	"bookforge-api/pkg/errors"
)

// Tier 订阅计划
type Tier string

const (
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Capability 可选生成能力
type Capability string

const (
	CapabilityFullBook  Capability = "full_book"
	CapabilityCover     Capability = "cover"
	CapabilityAudiobook Capability = "audiobook"
)

// allowedByTier 计划到能力集的固定映射
var allowedByTier = map[Tier]map[Capability]bool{
	TierStarter: {},
	TierPro: {
		CapabilityFullBook: true,
		CapabilityCover:    true,
	},
	TierEnterprise: {
		CapabilityFullBook:  true,
		CapabilityCover:     true,
		CapabilityAudiobook: true,
	},
}

// Allowed 返回计划允许的能力集
// 未知计划按 starter 处理
func Allowed(tier Tier) map[Capability]bool {
	caps, ok := allowedByTier[tier]
	if !ok {
		return map[Capability]bool{}
	}
	return caps
}

// Allows 判断计划是否允许单个能力
func Allows(tier Tier, cap Capability) bool {
	return Allowed(tier)[cap]
}

// Validate 校验请求的能力集合
// 在任何服务商调用与额度检查之前执行，命中缺失能力即返回 PermissionDenied
func Validate(tier Tier, requested []Capability) error {
	allowed := Allowed(tier)
	for _, cap := range requested {
		if !allowed[cap] {
			return errors.PermissionDenied(string(cap))
		}
	}
	return nil
}
