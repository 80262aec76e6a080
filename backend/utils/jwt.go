package utils

import (
	"strings"
	"time"

	"catprep/backend/config"
	"catprep/backend/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

func GenerateJWTToken(user *models.User, cfg *config.Config) (string, error) {
	claims := Claims{
		UserID: user.ID.String(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.JWTTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseJWTToken accepts "Bearer <token>" or a bare token.
func ParseJWTToken(header string, cfg *config.Config) (models.Identity, error) {
	tokenString := strings.TrimSpace(header)
	if tokenString == "" {
		return models.Identity{}, Unauthorizedf("missing authorization token")
	}
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, Unauthorizedf("invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, Unauthorizedf("invalid token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Identity{}, Unauthorizedf("invalid user id in token")
	}
	role := claims.Role
	if role == "" {
		role = models.RoleStudent
	}
	return models.Identity{UserID: userID, Role: role}, nil
}
