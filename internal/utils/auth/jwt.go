// Package auth provides JWT issuance and verification for the planning
// service's HTTP gateway.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

var (
	jwtSecretKey        = []byte(os.Getenv("JWT_SECRET_KEY"))
	tokenExpiry         = time.Hour
	refreshTokenExpiry  = time.Hour * 24 * 7
	tokenBlacklist      sync.Map
)

// Claims extends jwt.RegisteredClaims with the fields the gateway needs to
// authorize plan requests.
type Claims struct {
	ClientID    string `json:"cid"`
	Role        string `json:"role"`
	JTI         string `json:"jti"`
	Environment string `json:"env"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed access token for the given client.
func GenerateToken(clientID, role string, cfg *cfgtypes.ServiceConfig) (string, error) {
	if clientID == "" || cfg == nil {
		return "", fmt.Errorf("invalid input parameters")
	}

	jti, err := generateSecureID()
	if err != nil {
		return "", fmt.Errorf("failed to generate JTI: %w", err)
	}

	claims := &Claims{
		ClientID:    clientID,
		Role:        role,
		JTI:         jti,
		Environment: cfg.Environment,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "fieldplan-allocator",
			Subject:   clientID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecretKey)
}

// GenerateRefreshToken issues a long-lived refresh token for the client.
func GenerateRefreshToken(clientID string, cfg *cfgtypes.ServiceConfig) (string, error) {
	if clientID == "" || cfg == nil {
		return "", fmt.Errorf("invalid input parameters")
	}
	jti, err := generateSecureID()
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token id: %w", err)
	}
	claims := &Claims{
		ClientID:    clientID,
		JTI:         jti,
		Environment: cfg.Environment,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(refreshTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "fieldplan-allocator",
			Subject:   clientID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecretKey)
}

// ValidateToken parses and validates an access or refresh token, checking
// the revocation blacklist, signing method, environment, and expiry.
func ValidateToken(tokenString string, cfg *cfgtypes.ServiceConfig) (*jwt.Token, error) {
	if _, revoked := tokenBlacklist.Load(tokenString); revoked {
		return nil, fmt.Errorf("token has been revoked")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Environment != cfg.Environment {
		return nil, fmt.Errorf("invalid token environment")
	}
	if !claims.ExpiresAt.Time.After(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return token, nil
}

// RevokeToken adds a token to the in-process revocation blacklist.
func RevokeToken(tokenString string) {
	tokenBlacklist.Store(tokenString, time.Now())
}

func generateSecureID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
