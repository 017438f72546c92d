package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode    = 40000 // 无效的请求参数
	ValidationFailedCode = 40001 // 参数验证失败
	MethodNotAllowedCode = 40002 // HTTP 方法不支持

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode  = 40100 // 通用未授权
	TokenInvalidCode  = 40101 // Token 无效或过期
	OpsKeyInvalidCode = 40102 // 维护密钥缺失或错误

	// --- 权限错误系列 (403xx) ---
	ForbiddenCode          = 40300 // 通用无权限
	AdminNotConfiguredCode = 40301 // 非管理员（与空白名单返回同一错误，避免泄露差异）
	ShareRevokedCode       = 40302 // 分享已被撤销
	ShareExpiredCode       = 40303 // 分享链接已过期
	DownloadLimitCode      = 40304 // 下载次数已达上限

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode      = 40400 // 通用资源未找到
	ShareNotFoundCode = 40401 // 分享记录不存在

	// --- 业务逻辑冲突系列 (409xx) ---
	DownloadConflictCode = 40900 // 并发下载冲突，客户端可重试

	// --- 限流系列 (429xx) ---
	RateLimitedCode = 42900 // 失败次数过多被限流

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储服务操作失败（签名URL等）
	MQErrorCode             = 50003 // 消息队列操作失败
)
