package livekit

import (
	"testing"
	"time"
)

func TestSignAndParseAccessToken(t *testing.T) {
	token, err := SignAccessToken("devkey", "dev-secret", TokenOptions{
		RoomName:       "r1",
		Identity:       "u1",
		Name:           "Alice",
		Metadata:       "m",
		CanPublish:     true,
		CanSubscribe:   true,
		CanPublishData: false,
	})
	if err != nil {
		t.Fatalf("SignAccessToken error: %v", err)
	}

	claims, err := ParseAccessToken("dev-secret", token)
	if err != nil {
		t.Fatalf("ParseAccessToken error: %v", err)
	}
	if claims.Issuer != "devkey" || claims.Subject != "u1" {
		t.Fatalf("unexpected registered claims: %+v", claims.RegisteredClaims)
	}
	if claims.Name != "Alice" || claims.Metadata != "m" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	g := claims.Video
	if !g.RoomJoin || g.Room != "r1" || !g.CanPublish || !g.CanSubscribe || g.CanPublishData {
		t.Fatalf("unexpected grant: %+v", g)
	}

	// 默认 1 小时有效期
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 59*time.Minute || ttl > time.Hour {
		t.Fatalf("unexpected ttl: %v", ttl)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := SignAccessToken("devkey", "dev-secret", TokenOptions{RoomName: "r1", Identity: "u1"})
	if err != nil {
		t.Fatalf("SignAccessToken error: %v", err)
	}
	if _, err := ParseAccessToken("other-secret", token); err == nil {
		t.Fatalf("wrong secret must fail verification")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := SignAccessToken("devkey", "dev-secret", TokenOptions{
		RoomName: "r1",
		Identity: "u1",
		TTL:      time.Millisecond,
	})
	if err != nil {
		t.Fatalf("SignAccessToken error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseAccessToken("dev-secret", token); err == nil {
		t.Fatalf("expired token must fail verification")
	}
}
