package handler

import (
	"net/http"
	"slices"
	"strings"

	"facetsearch/search-service/internal/app/search/entity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID   = "user_id"
	ctxRoleName = "role_name"
)

// JWTClaims - claims токена, выданного внешним сервисом аутентификации
type JWTClaims struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет HS256 токен и роль вызывающего
// Поисковые эндпоинты публичные, middleware ставится только на изменения схемы фасетов
type AuthMiddleware struct {
	jwtSecret []byte
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: []byte(jwtSecret)}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Authorization header required"})
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return m.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid or expired token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRoleName, claims.RoleName)

		c.Next()
	}
}

// RequireRole пропускает только перечисленные роли, вызывается после Authenticate
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleName := c.GetString(ctxRoleName)
		if roleName == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
			return
		}

		if !slices.Contains(roles, strings.ToLower(roleName)) {
			c.AbortWithStatusJSON(http.StatusForbidden, entity.ErrorResponse{Error: "Insufficient permissions"})
			return
		}

		c.Next()
	}
}
