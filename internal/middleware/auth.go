package middleware

import (
	"errors"
	"net/http"
	"strings"

	"electivas/internal/model"
	"electivas/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireRole
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

var jwtSecret []byte

// InitAuth sets the HMAC secret used to verify access tokens. Tokens are issued by the identity service.
func InitAuth(secret []byte) {
	jwtSecret = secret
}

// Principal is the caller identified by an access token.
type Principal struct {
	UserID string
	Role   model.Role
}

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("subject not found in token")
	ErrUnknownRole    = errors.New("role not found in token")
)

// ParseToken verifies an HMAC-signed access token and extracts its subject and role.
func ParseToken(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, ErrMissingSubject
	}
	roleClaim, _ := claims["role"].(string)
	role, ok := model.ParseRole(roleClaim)
	if !ok {
		return Principal{}, ErrUnknownRole
	}
	return Principal{UserID: sub, Role: role}, nil
}

// RequireRole validates the JWT token and checks that its role is one of allowedRoles.
// An empty allowedRoles admits any authenticated principal.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, msg := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, msg))
			return
		}

		principal, err := ParseToken(tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, ErrUnknownRole) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, response.Error(status, err.Error()))
			return
		}

		if len(allowedRoles) > 0 && !roleAllowed(principal.Role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, principal.UserID)
		c.Set(ContextUserRole, principal.Role)

		c.Next()
	}
}

// UserID returns the authenticated subject, or "" outside RequireRole.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// extractToken reads the access_token cookie, falling back to the Authorization header.
func extractToken(c *gin.Context) (string, string) {
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, ""
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

func roleAllowed(role model.Role, allowed []model.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
