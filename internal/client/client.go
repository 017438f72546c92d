package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"time"
)

// 409 冲突重试参数：最多重试 3 次，基础间隔 250ms 按次翻倍，
// 外加 100ms 以内的随机抖动
const (
	maxConflictRetries = 3
	conflictRetryBase  = 250 * time.Millisecond
	conflictRetryJit   = 100 * time.Millisecond
)

// APIError 服务端返回的业务错误
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// RateLimitedError 被限流，RetryAfterSeconds 之后才可再试。
// 客户端绝不自动重试限流响应，由调用方决定何时重来
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfterSeconds)
}

// Client 分享服务的 HTTP 客户端，封装上传、验证口令和下载解密的完整流程
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient 创建客户端；token 为空时只能访问公开接口
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ShareInfo GET /shares/:token 返回的公开分享信息
type ShareInfo struct {
	ID                string     `json:"id"`
	OriginalName      string     `json:"original_name"`
	Token             string     `json:"token"`
	ExpiresAt         *time.Time `json:"expires_at"`
	MaxDownloads      *int       `json:"max_downloads"`
	DownloadCount     int        `json:"download_count"`
	HashScheme        string     `json:"hash_scheme"`
	EncryptionEnabled bool       `json:"encryption_enabled"`
	EncryptionIV      *string    `json:"encryption_iv"`
	Status            string     `json:"status"`
}

// CreateShareRequest POST /create-share-metadata 的请求体
type CreateShareRequest struct {
	OriginalName      string     `json:"originalName"`
	StoredPath        string     `json:"storedPath"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	MaxDownloads      *int       `json:"maxDownloads,omitempty"`
	Password          string     `json:"password,omitempty"`
	EncryptionEnabled bool       `json:"encryptionEnabled"`
	EncryptionIV      string     `json:"encryptionIV,omitempty"`
}

// CreateShareResult 创建分享后返回的标识
type CreateShareResult struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Upload 上传文件内容；encryptPassphrase 非空时先在本地加密再上传，
// 返回的 ivBase64 需要随后写入分享元数据
func (c *Client) Upload(ctx context.Context, filename string, content []byte, encryptPassphrase string) (storedPath, ivBase64 string, err error) {
	if encryptPassphrase != "" {
		content, ivBase64, err = Encrypt(content, encryptPassphrase)
		if err != nil {
			return "", "", err
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", "", fmt.Errorf("build multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", "", fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/files/upload", &buf)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var data struct {
		StoredPath string `json:"storedPath"`
	}
	if err := c.do(req, &data); err != nil {
		return "", "", err
	}
	return data.StoredPath, ivBase64, nil
}

// CreateShare 上传完成后登记分享元数据
func (c *Client) CreateShare(ctx context.Context, input CreateShareRequest) (*CreateShareResult, error) {
	var result CreateShareResult
	if err := c.postJSON(ctx, "/api/v1/create-share-metadata", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetShare 按分享令牌读取公开信息，用于下载前判断是否需要口令和加密参数
func (c *Client) GetShare(ctx context.Context, token string) (*ShareInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/share-info/"+token, nil)
	if err != nil {
		return nil, err
	}
	var info ShareInfo
	if err := c.do(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// VerifyPassword 校验访问口令；口令错误返回 (false, nil)，被限流返回 RateLimitedError
func (c *Client) VerifyPassword(ctx context.Context, fileID, password string) (bool, error) {
	body := map[string]string{"fileId": fileID, "password": password}
	var data struct {
		Valid bool `json:"valid"`
	}
	if err := c.postJSON(ctx, "/api/v1/verify-file-password", body, &data); err != nil {
		return false, err
	}
	return data.Valid, nil
}

// Download 走完整下载流程：换取签名URL → 拉取对象内容 → 需要时解密。
// 409 并发冲突按退避自动重试，429 限流直接返回错误不重试
func (c *Client) Download(ctx context.Context, fileID, decryptPassphrase, ivBase64 string) ([]byte, error) {
	signedURL, err := c.requestSignedURL(ctx, fileID)
	if err != nil {
		return nil, err
	}

	content, err := c.fetch(ctx, signedURL)
	if err != nil {
		return nil, err
	}

	if decryptPassphrase != "" {
		return Decrypt(content, ivBase64, decryptPassphrase)
	}
	return content, nil
}

func (c *Client) requestSignedURL(ctx context.Context, fileID string) (string, error) {
	body := map[string]string{"fileId": fileID}
	var lastErr error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if attempt > 0 {
			delay := conflictRetryBase * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Int63n(int64(conflictRetryJit)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		var data struct {
			SignedURL string `json:"signedUrl"`
		}
		err := c.postJSON(ctx, "/api/v1/validate-and-download", body, &data)
		if err == nil {
			return data.SignedURL, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusConflict {
			lastErr = err
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("download conflict persisted after %d retries: %w", maxConflictRetries, lastErr)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch object: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		var data struct {
			RetryAfterSeconds int `json:"retryAfterSeconds"`
		}
		_ = json.Unmarshal(env.Data, &data)
		return &RateLimitedError{RetryAfterSeconds: data.RetryAfterSeconds}
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{HTTPStatus: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
