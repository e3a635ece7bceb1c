package middleware

import (
	"net/http"
	"strings"

	"worldtour/internal/shared/config"
	"worldtour/internal/shared/requestctx"
	"worldtour/internal/shared/utils/response"
	"worldtour/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const requestContextKey = "request_context"

// JWTAuthWithConfig rejects requests without a valid access token
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		claims, err := parseAccessToken(cfg, tokenString)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthWithConfig attaches the user when a valid token is present
func OptionalAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := parseAccessToken(cfg, tokenString); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return RequireRoles(requiredRole)
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(string(users.RoleAdmin))
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// Localization resolves the caller's locale and display currency from
// X-Locale / Accept-Language and X-Currency / ?currency=.
func Localization() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := strings.TrimSpace(c.GetHeader("X-Locale"))
		if locale == "" {
			locale = requestctx.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
		}
		if locale == "" {
			locale = requestctx.DefaultLocale
		}

		currency := requestctx.NormalizeCurrency(c.Query("currency"))
		if currency == "" {
			currency = requestctx.NormalizeCurrency(c.GetHeader("X-Currency"))
		}
		if currency == "" {
			currency = requestctx.DefaultCurrency
		}

		c.Set("locale", locale)
		c.Set("currency", currency)
		c.Next()
	}
}

// RequestContextFrom assembles the explicit request context for service calls
func RequestContextFrom(c *gin.Context) requestctx.RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if rc, ok := v.(requestctx.RequestContext); ok {
			return rc
		}
	}

	rc := requestctx.Anonymous()
	if v := c.GetString("locale"); v != "" {
		rc.Locale = v
	}
	if v := c.GetString("currency"); v != "" {
		rc.Currency = v
	}
	if id, err := uuid.Parse(c.GetString("user_id")); err == nil {
		rc.UserID = id
		rc.Email = c.GetString("user_email")
		rc.Role = users.Role(c.GetString("user_role"))
	}

	c.Set(requestContextKey, rc)
	return rc
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type tokenError string

func (e tokenError) Error() string { return string(e) }

func parseAccessToken(cfg *config.Config, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, tokenError("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, tokenError("invalid or expired token")
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, tokenError("invalid token type")
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	c.Set("user_id", claims["user_id"])
	c.Set("user_email", claims["email"])
	c.Set("user_role", claims["role"])
}
