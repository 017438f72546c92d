package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 外部身份系统签发的 Token 载荷，
// 本服务只验证签名并取出用户ID，不负责用户管理
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken 用于生成 JWT Token（测试和本地联调用，生产由外部身份系统签发）
// userID: 用户在身份系统中的ID
// secretKey: 用于签名的密钥
// issuer: Token 的签发者
// expiresIn: Token 的有效期
func GenerateToken(userID, secretKey, issuer string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID, // Subject 是 token 的主体
			Audience:  []string{"users"},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
