package utils

import (
	"errors"
	"os"
	"time"

	"venuedir/config"

	"github.com/golang-jwt/jwt"
)

// SessionClaims is the identity carried by a bearer token.
type SessionClaims struct {
	UserID     string
	UserName   string
	UserAvatar string
}

func secretKey() []byte {
	if config.AppConfig.JWTSecret != "" {
		return []byte(config.AppConfig.JWTSecret)
	}
	return []byte(os.Getenv("JWT_SECRET"))
}

// GenerateToken creates a signed JWT token for the given user. The token
// expires after the specified duration.
func GenerateToken(claims SessionClaims, duration time.Duration) (string, error) {
	if len(secretKey()) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	mapClaims := jwt.MapClaims{
		"sub":    claims.UserID,
		"name":   claims.UserName,
		"avatar": claims.UserAvatar,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString(secretKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	key := secretKey()
	if len(key) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
}

// ExtractSessionClaims validates the token and returns the identity it carries.
func ExtractSessionClaims(tokenString string) (SessionClaims, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return SessionClaims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return SessionClaims{}, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return SessionClaims{}, errors.New("token does not contain a valid 'sub' claim")
	}
	name, _ := claims["name"].(string)
	avatar, _ := claims["avatar"].(string)

	return SessionClaims{UserID: sub, UserName: name, UserAvatar: avatar}, nil
}
