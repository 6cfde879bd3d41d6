package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	tokenIssuer    = "nigrani"
	minSecretBytes = 32
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the JWT claim set of an API token.
type TokenClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService mints and validates HS256 API tokens. Tokens are only minted
// from the CLI.
type TokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// DefaultSecretFile is where a generated signing secret is persisted.
func DefaultSecretFile() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".nigrani-secret-key")
	}
	return filepath.Join(os.TempDir(), ".nigrani-secret-key")
}

// NewTokenService creates a token service. With an empty secret the key is
// read from secretFile, or generated and written there on first use.
func NewTokenService(secret, secretFile string, expiry time.Duration, logger *zap.Logger) (*TokenService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = 90 * 24 * time.Hour
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		if secretFile == "" {
			secretFile = DefaultSecretFile()
		}
		loaded, err := loadOrCreateSecret(secretFile, logger)
		if err != nil {
			return nil, err
		}
		secret = loaded
	}
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret is %d bytes, need at least %d", len(secret), minSecretBytes)
	}

	return &TokenService{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

func loadOrCreateSecret(path string, logger *zap.Logger) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			logger.Info("Loaded persisted secret key", zap.String("path", path))
			return secret, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read secret key %s: %w", path, err)
	}

	randomBytes := make([]byte, minSecretBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	secret := hex.EncodeToString(randomBytes)

	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		logger.Warn("Could not persist secret key, tokens will not survive a restart",
			zap.String("path", path), zap.Error(err))
	} else {
		logger.Info("Generated and persisted secret key", zap.String("path", path))
	}
	return secret, nil
}

// Generate mints a token whose subject is name.
func (s *TokenService) Generate(name string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := TokenClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies a token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
