package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/cache"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"go.uber.org/zap"
)

// 可信代理注入的国家码请求头，按优先级排列
var countryHeaderKeys = []string{
	"cf-ipcountry",
	"x-country-code",
	"x-geo-country",
}

// Resolver 尽力而为的 IP 地理位置解析器。
// 失败一律退化为 nil（未知国家），绝不阻塞门禁主流程。
type Resolver struct {
	cfg        *config.GeoIPConfig
	cache      cache.Cache
	httpClient *http.Client
}

// NewResolver 创建 Resolver；外部查询带硬超时
func NewResolver(cfg *config.GeoIPConfig, c cache.Cache) *Resolver {
	return &Resolver{
		cfg:   cfg,
		cache: c,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ClientIP 从请求头解析客户端IP：X-Forwarded-For 第一跳优先，
// 其次 X-Real-IP，否则返回 "unknown"
func ClientIP(header http.Header) string {
	if forwarded := header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return "unknown"
}

// Resolve 解析客户端国家码：可信代理头优先，其次缓存，
// 最后对公网 IP 做一次受超时约束的外部查询。任何失败返回 nil。
func (r *Resolver) Resolve(ctx context.Context, header http.Header, clientIP string) *string {
	if country := countryFromHeaders(header); country != nil {
		return country
	}

	if isPrivateIP(clientIP) {
		return nil
	}

	key := cache.GenerateGeoCountryKey(clientIP)
	var cached string
	if r.cache != nil {
		if err := r.cache.Get(ctx, key, &cached); err == nil {
			return normalizeCountryCode(cached)
		}
	}

	country, err := r.lookup(ctx, clientIP)
	if err != nil {
		logger.Debug("geoip lookup failed", zap.String("ip", clientIP), zap.Error(err))
		return nil
	}
	if country == nil {
		return nil
	}

	if r.cache != nil {
		// 缓存失败只影响下次查询，不影响本次结果
		if err := r.cache.Set(ctx, key, *country, r.cfg.CacheTTL); err != nil {
			logger.Debug("geoip cache set failed", zap.String("ip", clientIP), zap.Error(err))
		}
	}
	return country
}

// lookup 请求外部服务，例如 GET https://ipapi.co/{ip}/country/
func (r *Resolver) lookup(ctx context.Context, clientIP string) (*string, error) {
	endpoint := fmt.Sprintf("%s/%s/country/", strings.TrimRight(r.cfg.Endpoint, "/"), url.PathEscape(clientIP))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("geoip lookup returned non-200 status")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16))
	if err != nil {
		return nil, err
	}
	return normalizeCountryCode(string(body)), nil
}

func countryFromHeaders(header http.Header) *string {
	for _, key := range countryHeaderKeys {
		if country := normalizeCountryCode(header.Get(key)); country != nil {
			return country
		}
	}
	return nil
}

// normalizeCountryCode 清洗国家码，占位值视为未知
func normalizeCountryCode(value string) *string {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" || normalized == "XX" || normalized == "UNKNOWN" {
		return nil
	}
	return &normalized
}

// isPrivateIP 内网/环回/未知地址不做外部查询
func isPrivateIP(ip string) bool {
	if ip == "unknown" || ip == "" {
		return true
	}
	privatePrefixes := []string{
		"10.", "192.168.", "127.", "::1",
		"172.16.", "172.17.", "172.18.", "172.19.", "172.2", "172.30.", "172.31.",
	}
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}
