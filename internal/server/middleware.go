package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goghstudio/gogh-backend/internal/observability/obscontext"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const contextUserIDKey = "user_id"

// AuthRequired validates the bearer token and stores the caller's user
// id on the request context. Token issuance lives in the identity
// service; this side only verifies.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := s.authenticate(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (string, error) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" || !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return "", ErrUnauthorized
	}
	tokenString := strings.TrimSpace(raw[len("bearer "):])
	if tokenString == "" || s.cfg.AuthJWTSecret == "" {
		return "", ErrUnauthorized
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", ErrUnauthorized
	}

	return userID.String(), nil
}

// currentUserID returns the authenticated user id set by AuthRequired.
func currentUserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return "", false
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
