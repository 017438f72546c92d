package client

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// GCM 随机数长度，96 位
const ivLength = 12

// DeriveKey 把口令的 SHA-256 摘要直接作为 AES-256 密钥。
// 注意：没有盐和迭代次数，相同口令永远得到相同密钥。已有密文依赖这一
// 派生方式，换成 argon2/scrypt 之前必须先给存量文件做带版本号的迁移，
// 在那之前不要用它保护真正敏感的内容
func DeriveKey(passphrase string) []byte {
	digest := sha256.Sum256([]byte(passphrase))
	return digest[:]
}

// Encrypt 用 AES-256-GCM 加密明文，每次调用生成新的随机 IV，
// 返回密文（含认证标签）和 base64 编码的 IV
func Encrypt(plaintext []byte, passphrase string) (ciphertext []byte, ivBase64 string, err error) {
	block, err := aes.NewCipher(DeriveKey(passphrase))
	if err != nil {
		return nil, "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, "", fmt.Errorf("init gcm: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, "", fmt.Errorf("generate iv: %w", err)
	}

	ciphertext = gcm.Seal(nil, iv, plaintext, nil)
	return ciphertext, base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt 解密并校验认证标签；口令错误或密文被篡改都会返回错误
func Decrypt(ciphertext []byte, ivBase64 string, passphrase string) ([]byte, error) {
	iv, err := base64.StdEncoding.DecodeString(ivBase64)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(iv) != ivLength {
		return nil, fmt.Errorf("invalid iv length: %d", len(iv))
	}

	block, err := aes.NewCipher(DeriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
