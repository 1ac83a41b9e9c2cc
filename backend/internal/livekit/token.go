package livekit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant：token 里授予的房间权限
type VideoGrant struct {
	RoomJoin       bool   `json:"roomJoin"`
	Room           string `json:"room"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type Claims struct {
	Name     string     `json:"name,omitempty"`
	Metadata string     `json:"metadata,omitempty"`
	Video    VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

type TokenOptions struct {
	RoomName       string
	Identity       string
	Name           string
	Metadata       string
	CanPublish     bool
	CanSubscribe   bool
	CanPublishData bool
	TTL            time.Duration
}

// SignAccessToken：签发加入房间的访问令牌（HS256）。
// issuer 是 API key，subject 是参与者 identity。
func SignAccessToken(apiKey, apiSecret string, opts TokenOptions) (string, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := &Claims{
		Name:     opts.Name,
		Metadata: opts.Metadata,
		Video: VideoGrant{
			RoomJoin:       true,
			Room:           opts.RoomName,
			CanPublish:     opts.CanPublish,
			CanSubscribe:   opts.CanSubscribe,
			CanPublishData: opts.CanPublishData,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   opts.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
}

// ParseAccessToken：解析并校验令牌，测试和调试用
func ParseAccessToken(apiSecret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(apiSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
