package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cloudylake/tenantapi/internal/apperror"
)

// maxTokenLength caps the token size accepted for parsing so oversized
// input cannot stall verification.
const maxTokenLength = 8 * 1024

// Claims bind a subject user and an acting tenant. Role and active
// status are deliberately absent; both are re-checked against the
// credential store on every authenticated request.
type Claims struct {
	UserID   string `json:"id"`
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed session tokens
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager creates a token manager with an explicit signing
// secret. The secret is injected, never read from ambient state.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Issue produces a signed, self-contained token for the given subject
// and tenant, valid for ttl.
func (tm *TokenManager) Issue(userID, tenantID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id required")
	}
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses and validates a token. Malformed signature, expired
// token, and wrong signing key all collapse to the same ErrInvalidToken
// so the failure mode is not leaked to callers.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" || len(tokenString) > maxTokenLength {
		return nil, apperror.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header value
func ExtractBearer(authHeader string) (string, bool) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
