package realtime

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 频道令牌错误
var (
	ErrTokenInvalid = errors.New("channel token invalid")
	ErrTokenChannel = errors.New("channel not authorized by token")
)

// channelClaims 频道令牌声明
type channelClaims struct {
	Channels []string `json:"channels"`
	jwt.RegisteredClaims
}

// ChannelTokenIssuer 私有频道订阅令牌的签发与校验
type ChannelTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewChannelTokenIssuer 创建令牌签发器
func NewChannelTokenIssuer(secret string, ttl time.Duration) *ChannelTokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ChannelTokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue 签发允许订阅给定频道的令牌
func (i *ChannelTokenIssuer) Issue(subject string, channels []string) (string, error) {
	now := time.Now()
	claims := channelClaims{
		Channels: channels,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify 校验令牌并确认其授权了目标频道
func (i *ChannelTokenIssuer) Verify(tokenString, channel string) error {
	token, err := jwt.ParseWithClaims(tokenString, &channelClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	claims, ok := token.Claims.(*channelClaims)
	if !ok {
		return ErrTokenInvalid
	}
	for _, allowed := range claims.Channels {
		if allowed == channel {
			return nil
		}
	}
	return ErrTokenChannel
}
