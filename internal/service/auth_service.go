package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/strivio/contesthub-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active, please contact your educator to reset")
)

// TokenType distinguishes participant vs educator tokens.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeEducator    TokenType = "educator"
)

// Claims extends the registered JWT claims with the token type and the
// numeric account ID.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int       `json:"user_id"`
}

// AuthService issues and validates JWTs and tracks participant login
// sessions in Redis. Participants are limited to one live session; educators
// are not.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// HashPassword hashes with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword verifies password against a bcrypt hash, folding any
// mismatch into ErrInvalidCredentials.
func (s *AuthService) CheckPassword(hash, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// signToken builds and signs a token of the given type. The JTI doubles as
// the participant session handle stored in Redis.
func (s *AuthService) signToken(tokenType TokenType, userID int) (signed, jti string, err error) {
	jti = uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: tokenType,
		UserID:    userID,
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	return signed, jti, err
}

// GenerateParticipantToken issues a participant JWT and registers its JTI as
// the participant's single active login session. While a session exists, a
// second login returns ErrSessionAlreadyActive; an educator must reset it.
func (s *AuthService) GenerateParticipantToken(ctx context.Context, participantID int) (string, error) {
	sessionKey := config.CacheKey.ParticipantLoginKey(participantID)

	existing, err := s.rdb.Get(ctx, sessionKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("check session: %w", err)
	}
	if existing != "" {
		return "", ErrSessionAlreadyActive
	}

	signed, jti, err := s.signToken(TokenTypeParticipant, participantID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	// The session record expires together with the JWT.
	if err := s.rdb.Set(ctx, sessionKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// GenerateEducatorToken issues an educator JWT. No session bookkeeping.
func (s *AuthService) GenerateEducatorToken(educatorID int) (string, error) {
	signed, _, err := s.signToken(TokenTypeEducator, educatorID)
	return signed, err
}

// ValidateToken parses tokenStr, enforcing HMAC signing and expiry.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateParticipantSession confirms the token's JTI is still the active
// login session. A reset or a newer login invalidates older tokens here.
func (s *AuthService) ValidateParticipantSession(ctx context.Context, participantID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.ParticipantLoginKey(participantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("no active session")
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return errors.New("session invalidated")
	}
	return nil
}

// ResetParticipantSession clears the active login session so the
// participant can log in again. Exposed to educators and used on logout.
func (s *AuthService) ResetParticipantSession(ctx context.Context, participantID int) error {
	return s.rdb.Del(ctx, config.CacheKey.ParticipantLoginKey(participantID)).Err()
}
