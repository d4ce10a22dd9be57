package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"boleto/internal/shared/config"
	"boleto/internal/shared/errs"
	"boleto/internal/shared/utils/response"
	"boleto/internal/users"
)

// JWTAuth authenticates the request with the process-wide config.
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig verifies the Bearer token and stores the caller
// identity (user_id, user_email, user_role) on the request context. Only
// access tokens pass; refresh tokens are rejected here so they can never
// be replayed against the API.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, errs.New(errs.KindUnauthorized, "invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["type"] != "access" {
			abortUnauthorized(c, errs.New(errs.KindUnauthorized, "token is not an access token"))
			return
		}

		c.Set("user_id", claims["user_id"])
		c.Set("user_email", claims["email"])
		c.Set("user_role", claims["role"])
		c.Next()
	}
}

// RequireRole gates a route group on the authenticated caller's role.
// Must run after JWTAuth.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists {
			abortUnauthorized(c, errs.New(errs.KindUnauthorized, "caller identity missing"))
			return
		}
		if role != requiredRole {
			response.RespondJSON(c, "error", http.StatusForbidden, "insufficient permissions", nil, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(string(users.RoleAdmin))
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errs.New(errs.KindUnauthorized, "authorization header is required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errs.New(errs.KindUnauthorized, "authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

func abortUnauthorized(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
