package admin

// AuthorizationPolicy 管理操作的授权策略，注入到需要鉴权的服务中
// 而不是依赖包级常量
type AuthorizationPolicy interface {
	// IsAdmin 判断调用者是否在管理员白名单内。
	// 空白名单和不在名单内对调用方表现完全一致。
	IsAdmin(userID string) bool
}

type allowListPolicy struct {
	userIDs map[string]struct{}
}

// NewAllowListPolicy 用配置的管理员ID列表构造授权策略
func NewAllowListPolicy(userIDs []string) AuthorizationPolicy {
	set := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return &allowListPolicy{userIDs: set}
}

func (p *allowListPolicy) IsAdmin(userID string) bool {
	if len(p.userIDs) == 0 {
		return false
	}
	_, ok := p.userIDs[userID]
	return ok
}
