package middleware

import (
	"errors"
	"fmt"
	"time"

	"eventhub/internal/users"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const tokenTypeAccess = "access"

var errInvalidToken = errors.New("invalid token")

// AccessClaims is the identity carried by an access token
type AccessClaims struct {
	UserID uuid.UUID
	Role   users.Role
}

// IssueAccessToken signs an HS256 access token. Identity is owned by an
// external provider; this is used by the seeder and tests.
func IssueAccessToken(secret string, userID uuid.UUID, role users.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"type":    tokenTypeAccess,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken validates signature, expiry and token type
func ParseAccessToken(secret, tokenString string) (*AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != tokenTypeAccess {
		return nil, fmt.Errorf("%w: type %q", errInvalidToken, claims["type"])
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: user_id: %v", errInvalidToken, err)
	}

	role, _ := claims["role"].(string)
	if !users.IsValidRole(role) {
		return nil, fmt.Errorf("%w: role %q", errInvalidToken, role)
	}

	return &AccessClaims{UserID: userID, Role: users.Role(role)}, nil
}
