package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"halmon/internal/logger"
)

const (
	tokenIssuer        = "halmon"
	defaultTokenExpiry = 90 * 24 * time.Hour
	minSecretLength    = 32
)

// AuthService issues and checks the tokens used by websocket clients
type AuthService struct {
	secretKey   []byte
	tokenExpiry time.Duration
}

// CustomClaims represents the JWT claims structure
type CustomClaims struct {
	ServerName string `json:"server_name"`
	jwt.RegisteredClaims
}

// NewAuthService uses secret, or the key persisted in keyFile, or a freshly
// generated key written to keyFile
func NewAuthService(secret string, tokenExpiry time.Duration, keyFile string) (*AuthService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		var err error
		secret, err = loadOrCreateSecret(keyFile)
		if err != nil {
			return nil, err
		}
	}
	if len(secret) < minSecretLength {
		logger.Warnf("[AUTH] secret key is only %d bytes, recommended minimum is %d", len(secret), minSecretLength)
	}
	if tokenExpiry <= 0 {
		tokenExpiry = defaultTokenExpiry
	}
	return &AuthService{secretKey: []byte(secret), tokenExpiry: tokenExpiry}, nil
}

// DefaultKeyFile is where a generated secret is kept between runs
func DefaultKeyFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), ".halmon-secret-key")
	}
	return filepath.Join(home, ".halmon-secret-key")
}

func loadOrCreateSecret(keyFile string) (string, error) {
	if keyFile == "" {
		keyFile = DefaultKeyFile()
	}
	if data, err := os.ReadFile(keyFile); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		logger.Debugf("[AUTH] loaded persisted secret key from %s", keyFile)
		return strings.TrimSpace(string(data)), nil
	}

	random := make([]byte, minSecretLength)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	secret := hex.EncodeToString(random)

	if err := os.WriteFile(keyFile, []byte(secret), 0o600); err != nil {
		logger.Warnf("[AUTH] could not persist secret key to %s: %v", keyFile, err)
	} else {
		logger.Infof("[AUTH] generated and persisted secret key to %s", keyFile)
	}
	return secret, nil
}

// GenerateToken creates a signed token naming the server it was issued for
func (a *AuthService) GenerateToken(serverName string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(a.tokenExpiry)

	claims := CustomClaims{
		ServerName: serverName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies and parses a token
func (a *AuthService) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secretKey, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
