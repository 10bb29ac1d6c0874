package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/strivio/contesthub-backend/internal/config"
)

func newAuthTestService(t *testing.T) *AuthService {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	}
	return NewAuthService(cfg, rdb)
}

func TestParticipantTokenRoundTrip(t *testing.T) {
	svc := newAuthTestService(t)
	ctx := context.Background()

	token, err := svc.GenerateParticipantToken(ctx, 42)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.TokenType != TokenTypeParticipant {
		t.Fatalf("token type = %s, want participant", claims.TokenType)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d, want 42", claims.UserID)
	}
	if err := svc.ValidateParticipantSession(ctx, 42, claims.ID); err != nil {
		t.Fatalf("validate session: %v", err)
	}
}

func TestParticipantSingleDeviceLogin(t *testing.T) {
	svc := newAuthTestService(t)
	ctx := context.Background()

	if _, err := svc.GenerateParticipantToken(ctx, 42); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.GenerateParticipantToken(ctx, 42); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("second login err = %v, want ErrSessionAlreadyActive", err)
	}

	// A different participant is unaffected.
	if _, err := svc.GenerateParticipantToken(ctx, 43); err != nil {
		t.Fatalf("other participant login: %v", err)
	}

	// After a reset the participant can log in again, and the old token's
	// session check fails.
	old, _ := svc.rdb.Get(ctx, config.CacheKey.ParticipantLoginKey(42)).Result()
	if err := svc.ResetParticipantSession(ctx, 42); err != nil {
		t.Fatalf("reset session: %v", err)
	}
	if _, err := svc.GenerateParticipantToken(ctx, 42); err != nil {
		t.Fatalf("relogin after reset: %v", err)
	}
	if err := svc.ValidateParticipantSession(ctx, 42, old); err == nil {
		t.Fatal("stale session JTI still validates")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newAuthTestService(t)
	other := newAuthTestService(t)
	other.cfg.JWTSecret = "different-secret"

	token, err := other.GenerateEducatorToken(7)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("token signed with wrong secret validated")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := newAuthTestService(t)

	hash, err := svc.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := svc.CheckPassword(hash, "hunter2"); err != nil {
		t.Fatalf("check password: %v", err)
	}
	if err := svc.CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
}
