package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/fintrack-server/internal/model"
)

// Claims carries the caller identity. The user ID travels as the subject.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey string
	ttl       time.Duration
	now       func() time.Time
}

var _ model.TokenManager = (*JWT)(nil)

// NewJWT creates a token manager issuing tokens valid for ttl.
func NewJWT(secretKey string, ttl time.Duration) *JWT {
	return &JWT{secretKey: secretKey, ttl: ttl, now: time.Now}
}

// Issue signs a token for identity.
func (j *JWT) Issue(identity model.Identity) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		Email: identity.Email,
		Name:  identity.Name,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Parse validates a token and extracts the identity it carries.
// Every rejection wraps model.ErrUnauthenticated.
func (j *JWT) Parse(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to parse token: %w: %w", model.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return model.Identity{}, fmt.Errorf("token is invalid: %w", model.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("token has no subject: %w", model.ErrUnauthenticated)
	}

	return model.Identity{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
