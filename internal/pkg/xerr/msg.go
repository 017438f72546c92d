package xerr

import "errors"

var (
	// 通用错误
	ErrInternalServer = errors.New("服务器内部错误")
	ErrInvalidParams  = errors.New("无效的请求参数")

	// 认证与授权错误
	ErrUnauthorized  = errors.New("用户未授权")
	ErrTokenInvalid  = errors.New("认证 Token 无效或已过期")
	ErrOpsKeyInvalid = errors.New("维护密钥缺失或错误")

	// 管理员白名单：空名单和不在名单返回同一个错误，
	// 不向调用方区分具体哪一种情况
	ErrAdminNotConfigured = errors.New("admin access not configured for this user")

	// 访问门禁错误
	ErrShareNotFound    = errors.New("分享记录不存在")
	ErrShareRevoked     = errors.New("分享链接已被撤销")
	ErrShareExpired     = errors.New("分享链接已过期")
	ErrDownloadLimit    = errors.New("下载次数已达上限")
	ErrDownloadConflict = errors.New("检测到并发下载冲突，请重试")

	// 数据库与外部服务错误
	ErrDatabaseError = errors.New("数据库操作失败")
	ErrStorageError  = errors.New("存储服务操作失败")
	ErrMQError       = errors.New("消息队列操作失败")
)

// RateLimitedError 表示请求因滑动窗口限流被拒绝，
// 携带客户端应等待的秒数
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return "失败次数过多，请稍后重试"
}

// NewRateLimitedError 创建限流错误
func NewRateLimitedError(retryAfterSeconds int) *RateLimitedError {
	return &RateLimitedError{RetryAfterSeconds: retryAfterSeconds}
}
