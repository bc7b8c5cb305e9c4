package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing or invalid authorization header")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotOwner     = errors.New("access denied: can only access own data")
)

// Claims is the payload of access tokens issued by the SSO service.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	AppID  int32  `json:"app_id"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type JWTValidator struct {
	secretKey []byte
}

func NewJWTValidator(secretKey string) *JWTValidator {
	return &JWTValidator{
		secretKey: []byte(secretKey),
	}
}

// ValidateToken checks signature and expiry locally.
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// refresh tokens must not be accepted as access tokens
	if claims.Type != "" && claims.Type != "access" {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}

	return claims, nil
}

// Authenticate validates the bearer token of an HTTP request.
func (v *JWTValidator) Authenticate(r *http.Request) (*Claims, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	return v.ValidateToken(token)
}

// RequireOwnership allows a caller to act only on their own user id.
func RequireOwnership(claims *Claims, userID int64) error {
	if claims == nil || claims.UserID != userID {
		return ErrNotOwner
	}
	return nil
}

func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", ErrMissingToken
	}

	return parts[1], nil
}
