package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// qrPrefix 客户二维码负载前缀
const qrPrefix = "qru"

// QRDecoder 二维码负载解码接口
type QRDecoder interface {
	Decode(payload string) (uint, error)
	Encode(userID uint) string
}

// HMACQRDecoder HMAC-SHA256 签名的二维码负载编解码器
type HMACQRDecoder struct {
	secret []byte
}

// NewHMACQRDecoder 创建二维码编解码器
func NewHMACQRDecoder(secret string) *HMACQRDecoder {
	return &HMACQRDecoder{secret: []byte(secret)}
}

func (d *HMACQRDecoder) sign(userID uint) string {
	mac := hmac.New(sha256.New, d.secret)
	fmt.Fprintf(mac, "%s:%d", qrPrefix, userID)
	return hex.EncodeToString(mac.Sum(nil))
}

// Encode 生成带签名的二维码负载
func (d *HMACQRDecoder) Encode(userID uint) string {
	return fmt.Sprintf("%s:%d:%s", qrPrefix, userID, d.sign(userID))
}

// Decode 验签并解析用户ID；任何畸形或签名不符都返回 ErrInvalidQR
func (d *HMACQRDecoder) Decode(payload string) (uint, error) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != 3 || parts[0] != qrPrefix {
		return 0, ErrInvalidQR
	}
	userID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidQR
	}
	expected := d.sign(uint(userID))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(parts[2]))) {
		return 0, ErrInvalidQR
	}
	return uint(userID), nil
}
