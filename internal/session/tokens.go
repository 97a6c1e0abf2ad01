package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neighbourhood-events/portal/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims identify the client and the user signed in on it.
type Claims struct {
	ClientID string      `json:"cid"`
	UserID   models.ID   `json:"uid,omitempty"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and validates session tokens.
type Tokens struct {
	secret      []byte
	expireHours int
}

// NewTokens creates a token service.
func NewTokens(secret string, expireHours int) *Tokens {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &Tokens{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// TTL is how long an issued token stays valid.
func (t *Tokens) TTL() time.Duration {
	return time.Duration(t.expireHours) * time.Hour
}

// Issue creates a token for u signed in on clientID.
func (t *Tokens) Issue(clientID string, u models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL())),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and validates a token, returning claims or error.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ClientID == "" || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
