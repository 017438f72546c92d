package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/handlers/response"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/maintenance"
	"go.uber.org/zap"
)

// MaintenanceHandler 运维维护接口，由定时任务或运维人员调用
type MaintenanceHandler struct {
	job *maintenance.Job
	cfg *config.Config
}

func NewMaintenanceHandler(job *maintenance.Job, cfg *config.Config) *MaintenanceHandler {
	return &MaintenanceHandler{job: job, cfg: cfg}
}

// Run 执行一次维护：清理过期分享、裁剪审计日志、发出阈值告警。
// @Summary 执行维护任务
// @Description 需要 X-Ops-Key 共享密钥；任务幂等，可安全重复调用
// @Tags 运维
// @Produce json
// @Param X-Ops-Key header string true "维护密钥"
// @Success 200 {object} response.Response "运行摘要"
// @Failure 401 {object} response.Response "密钥缺失或错误"
// @Router /ops-maintenance [post]
func (h *MaintenanceHandler) Run(c *gin.Context) {
	key := c.GetHeader("X-Ops-Key")
	expected := h.cfg.Ops.MaintenanceKey
	if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
		response.Error(c, http.StatusUnauthorized, xerr.OpsKeyInvalidCode, xerr.ErrOpsKeyInvalid.Error())
		return
	}

	summary, err := h.job.Run(c.Request.Context())
	if err != nil {
		logger.Error("维护任务执行失败", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "维护任务执行失败")
		return
	}

	response.Success(c, http.StatusOK, "维护任务完成", summary)
}
