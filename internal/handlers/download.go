package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/handlers/response"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/geoip"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/gatekeeper"
	"go.uber.org/zap"
)

// DownloadHandler 公开下载门禁接口：签发下载和口令校验
type DownloadHandler struct {
	gate     *gatekeeper.DownloadGate
	verifier *gatekeeper.CredentialVerifier
	resolver *geoip.Resolver
}

func NewDownloadHandler(gate *gatekeeper.DownloadGate, verifier *gatekeeper.CredentialVerifier, resolver *geoip.Resolver) *DownloadHandler {
	return &DownloadHandler{
		gate:     gate,
		verifier: verifier,
		resolver: resolver,
	}
}

type ValidateAndDownloadRequest struct {
	FileID string `json:"fileId" binding:"required"`
}

type VerifyPasswordRequest struct {
	FileID   string `json:"fileId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ValidateAndDownload 校验分享状态并原子消耗一次下载额度，放行后返回签名URL。
// @Summary 下载放行
// @Description 检查限流、分享状态和剩余次数，原子消耗一次下载并返回短时效签名URL
// @Tags 下载门禁
// @Accept json
// @Produce json
// @Param request body ValidateAndDownloadRequest true "要下载的分享ID"
// @Success 200 {object} response.Response "放行，data 中携带 signedUrl"
// @Failure 403 {object} response.Response "已撤销/已过期/次数用尽"
// @Failure 404 {object} response.Response "分享不存在"
// @Failure 409 {object} response.Response "并发下载冲突，可重试"
// @Failure 429 {object} response.Response "被限流，data 中携带 retryAfterSeconds"
// @Router /api/v1/validate-and-download [post]
func (h *DownloadHandler) ValidateAndDownload(c *gin.Context) {
	var req ValidateAndDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	clientIP := geoip.ClientIP(c.Request.Header)
	geoCountry := h.resolver.Resolve(c.Request.Context(), c.Request.Header, clientIP)

	signedURL, err := h.gate.ValidateAndConsume(c.Request.Context(), req.FileID, clientIP, geoCountry)
	if err != nil {
		h.writeGateError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "下载已放行", gin.H{
		"signedUrl": signedURL,
	})
}

// VerifyPassword 校验分享访问口令。
// @Summary 校验访问口令
// @Description 校验口令是否正确，data 中的 valid 指示结果；口令错误不是 HTTP 错误
// @Tags 下载门禁
// @Accept json
// @Produce json
// @Param request body VerifyPasswordRequest true "分享ID和待校验口令"
// @Success 200 {object} response.Response "校验完成，data 中携带 valid"
// @Failure 404 {object} response.Response "分享不存在"
// @Failure 429 {object} response.Response "口令尝试被限流"
// @Router /api/v1/verify-file-password [post]
func (h *DownloadHandler) VerifyPassword(c *gin.Context) {
	var req VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	clientIP := geoip.ClientIP(c.Request.Header)
	geoCountry := h.resolver.Resolve(c.Request.Context(), c.Request.Header, clientIP)

	valid, err := h.verifier.Verify(c.Request.Context(), req.FileID, req.Password, clientIP, geoCountry)
	if err != nil {
		h.writeGateError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "口令校验完成", gin.H{
		"valid": valid,
	})
}

// writeGateError 把门禁错误映射为 HTTP 状态码和业务码
func (h *DownloadHandler) writeGateError(c *gin.Context, err error) {
	var rateErr *xerr.RateLimitedError
	switch {
	case errors.As(err, &rateErr):
		c.Header("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
		response.JSONResponse(c, http.StatusTooManyRequests, xerr.RateLimitedCode, rateErr.Error(), gin.H{
			"retryAfterSeconds": rateErr.RetryAfterSeconds,
		})
	case errors.Is(err, xerr.ErrShareNotFound):
		response.Error(c, http.StatusNotFound, xerr.ShareNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrShareRevoked):
		response.Error(c, http.StatusForbidden, xerr.ShareRevokedCode, err.Error())
	case errors.Is(err, xerr.ErrShareExpired):
		response.Error(c, http.StatusForbidden, xerr.ShareExpiredCode, err.Error())
	case errors.Is(err, xerr.ErrDownloadLimit):
		response.Error(c, http.StatusForbidden, xerr.DownloadLimitCode, err.Error())
	case errors.Is(err, xerr.ErrDownloadConflict):
		response.Error(c, http.StatusConflict, xerr.DownloadConflictCode, err.Error())
	case errors.Is(err, xerr.ErrStorageError):
		logger.Error("签名URL生成失败", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.StorageErrorCode, xerr.ErrStorageError.Error())
	default:
		logger.Error("下载门禁处理失败", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "服务器内部错误")
	}
}
