package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/handlers/response"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/utils"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/admin"
	"go.uber.org/zap"
)

// AdminHandler 管理面板接口
type AdminHandler struct {
	mutationService admin.MutationService
	panelService    admin.PanelService
}

func NewAdminHandler(mutationService admin.MutationService, panelService admin.PanelService) *AdminHandler {
	return &AdminHandler{
		mutationService: mutationService,
		panelService:    panelService,
	}
}

type PanelDataRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

type ShareActionRequest struct {
	FileID     string `json:"fileId" binding:"required"`
	Action     string `json:"action" binding:"required"`
	ExtendDays int    `json:"extendDays"`
}

// PanelData 返回管理面板聚合数据。
// @Summary 管理面板数据
// @Description 聚合指标、最近分享和访问日志，支持按 token/用户/IP/原因过滤
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PanelDataRequest true "过滤条件，均可为空"
// @Success 200 {object} response.Response "面板数据"
// @Failure 403 {object} response.Response "非管理员"
// @Router /api/v1/admin-panel-data [post]
func (h *AdminHandler) PanelData(c *gin.Context) {
	var req PanelDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	data, err := h.panelService.PanelData(c.Request.Context(), userID, admin.PanelFilter{
		Token:  req.Token,
		UserID: req.UserID,
		IP:     req.IP,
		Reason: req.Reason,
	})
	if err != nil {
		h.writeAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "查询成功", data)
}

// ShareAction 对分享执行管理操作。
// @Summary 分享管理操作
// @Description 执行 revoke/extend/reset_download_count/delete 之一
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ShareActionRequest true "操作目标与类型"
// @Success 200 {object} response.Response "操作完成"
// @Failure 403 {object} response.Response "非管理员"
// @Failure 404 {object} response.Response "分享不存在"
// @Router /api/v1/admin-share-action [post]
func (h *AdminHandler) ShareAction(c *gin.Context) {
	var req ShareActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.mutationService.Apply(c.Request.Context(), userID, req.FileID, req.Action, req.ExtendDays); err != nil {
		h.writeAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "操作完成", gin.H{
		"fileId": req.FileID,
		"action": req.Action,
	})
}

func (h *AdminHandler) writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, xerr.ErrAdminNotConfigured):
		// 空白名单与不在名单返回同一响应
		response.Error(c, http.StatusForbidden, xerr.AdminNotConfiguredCode, err.Error())
	case errors.Is(err, xerr.ErrShareNotFound):
		response.Error(c, http.StatusNotFound, xerr.ShareNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrInvalidParams):
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
	default:
		logger.Error("管理操作处理失败", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "服务器内部错误")
	}
}
