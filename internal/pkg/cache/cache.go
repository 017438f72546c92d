package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache 缓存通用接口。地理位置解析是目前唯一的使用方，
// 条目靠过期时间自然淘汰，不提供主动删除
type Cache interface {
	// Set在缓存中设置一个值，并指定过期时间。
	// value应该是一个可以被JSON封送的结构体或指向结构体的指针。
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Get从缓存中检索一个值，并将其解编组到目标接口。
	// target应该是一个指针，指向希望解编组成的类型。
	Get(ctx context.Context, key string, target any) error
}

// GenerateGeoCountryKey 地理位置查询结果的缓存键
func GenerateGeoCountryKey(ip string) string {
	return fmt.Sprintf("geoip:country:%s", ip)
}
