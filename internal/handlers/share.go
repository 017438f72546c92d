package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/handlers/response"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/utils"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/metadata"
	"go.uber.org/zap"
)

// ShareHandler 分享元数据相关接口
type ShareHandler struct {
	shareService metadata.ShareService
	storage      storage.StorageService
	cfg          *config.Config
}

func NewShareHandler(shareService metadata.ShareService, storageService storage.StorageService, cfg *config.Config) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		storage:      storageService,
		cfg:          cfg,
	}
}

type CreateShareMetadataRequest struct {
	OriginalName      string     `json:"originalName" binding:"required"`
	StoredPath        string     `json:"storedPath" binding:"required"`
	Token             string     `json:"token"` // 缺省时服务端生成
	ExpiresAt         *time.Time `json:"expiresAt"`
	MaxDownloads      *int       `json:"maxDownloads"`
	Password          string     `json:"password"`
	EncryptionEnabled bool       `json:"encryptionEnabled"`
	EncryptionIV      string     `json:"encryptionIV"`
}

// UploadFile 接收文件内容并写入对象存储。
// @Summary 上传文件
// @Description 接收 multipart 文件写入对象存储，返回 storedPath 供登记元数据使用
// @Tags 分享
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "要上传的文件"
// @Success 200 {object} response.Response "上传成功，data 中携带 storedPath"
// @Failure 400 {object} response.Response "缺少文件"
// @Router /api/v1/files/upload [post]
func (h *ShareHandler) UploadFile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "缺少上传文件: "+err.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	// 对象路径按用户隔离，文件名用 UUID 避免覆盖
	objectName := fmt.Sprintf("%s/%s-%s", userID, uuid.New().String(), fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.storage.PutObject(c.Request.Context(), h.cfg.BucketName(), objectName, src, fileHeader.Size, contentType)
	if err != nil {
		logger.Error("UploadFile: 写入对象存储失败", zap.String("objectName", objectName), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.StorageErrorCode, "文件上传失败")
		return
	}

	response.Success(c, http.StatusOK, "文件上传成功", gin.H{
		"storedPath": result.Key,
		"size":       result.Size,
	})
}

// CreateShareMetadata 上传完成后登记分享元数据。
// @Summary 登记分享元数据
// @Description 为已上传的对象创建分享记录，可设置口令、有效期、下载上限和加密参数
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateShareMetadataRequest true "分享元数据"
// @Success 200 {object} response.Response "创建成功，data 中携带 id 和 token"
// @Failure 400 {object} response.Response "请求参数无效"
// @Router /api/v1/create-share-metadata [post]
func (h *ShareHandler) CreateShareMetadata(c *gin.Context) {
	var req CreateShareMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	token := req.Token
	if token == "" {
		token = uuid.New().String()
	}

	share, err := h.shareService.CreateShare(c.Request.Context(), userID, metadata.CreateShareInput{
		OriginalName:      req.OriginalName,
		StoredPath:        req.StoredPath,
		Token:             token,
		ExpiresAt:         req.ExpiresAt,
		MaxDownloads:      req.MaxDownloads,
		Password:          req.Password,
		EncryptionEnabled: req.EncryptionEnabled,
		EncryptionIV:      req.EncryptionIV,
	})
	if err != nil {
		if errors.Is(err, xerr.ErrInvalidParams) {
			response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		logger.Error("CreateShareMetadata: 创建分享失败", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "创建分享失败")
		return
	}

	response.Success(c, http.StatusOK, "分享创建成功", gin.H{
		"id":    share.ID,
		"token": share.Token,
	})
}

// GetShareByToken 下载页加载时的公开查询。
// @Summary 查询分享信息
// @Description 按分享令牌返回公开元数据和当前状态，不含口令哈希
// @Tags 分享
// @Produce json
// @Param token path string true "分享令牌"
// @Success 200 {object} response.Response "分享信息"
// @Failure 404 {object} response.Response "分享不存在"
// @Router /api/v1/share-info/{token} [get]
func (h *ShareHandler) GetShareByToken(c *gin.Context) {
	token := c.Param("token")

	view, err := h.shareService.GetShareByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, xerr.ErrShareNotFound) {
			response.Error(c, http.StatusNotFound, xerr.ShareNotFoundCode, err.Error())
			return
		}
		logger.Error("GetShareByToken: 查询分享失败", zap.String("token", token), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "查询分享失败")
		return
	}

	// 展平为公开视图，不暴露对象路径和上传者
	response.Success(c, http.StatusOK, "查询成功", gin.H{
		"id":                 view.Share.ID,
		"original_name":      view.Share.OriginalName,
		"token":              view.Share.Token,
		"expires_at":         view.Share.ExpiresAt,
		"max_downloads":      view.Share.MaxDownloads,
		"download_count":     view.Share.DownloadCount,
		"hash_scheme":        view.Share.HashScheme,
		"encryption_enabled": view.Share.EncryptionEnabled,
		"encryption_iv":      view.Share.EncryptionIV,
		"status":             view.Status,
	})
}

// ListMyShares 列出当前用户创建的分享。
// @Summary 我的分享列表
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码，默认1"
// @Param page_size query int false "每页数量，默认20"
// @Success 200 {object} response.Response "分享列表"
// @Router /api/v1/shares/my [get]
func (h *ShareHandler) ListMyShares(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	views, total, err := h.shareService.ListUserShares(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		logger.Error("ListMyShares: 查询分享列表失败", zap.String("userID", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "查询分享列表失败")
		return
	}

	response.Success(c, http.StatusOK, "查询成功", gin.H{
		"shares": views,
		"total":  total,
	})
}
