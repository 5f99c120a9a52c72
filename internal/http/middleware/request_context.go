package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/http/response"
	"github.com/yungbote/workshop-backend/internal/platform/ctxutil"
)

const HeaderUserID = "X-User-Id"

// IdentityConfig selects how the caller is resolved. With a JWTSecret the
// Authorization bearer token is verified (HS256, subject = user id);
// otherwise X-User-Id set by the upstream gateway is trusted.
type IdentityConfig struct {
	JWTSecret string
}

func RequireUser(cfg IdentityConfig) gin.HandlerFunc {
	secret := strings.TrimSpace(cfg.JWTSecret)
	return func(c *gin.Context) {
		var (
			userID uuid.UUID
			err    error
		)
		if secret != "" {
			userID, err = userFromBearer(c.GetHeader("Authorization"), secret)
		} else {
			userID, err = userFromHeader(c.GetHeader(HeaderUserID))
		}
		if err != nil {
			c.Abort()
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func userFromHeader(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, errors.New("missing " + HeaderUserID)
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("invalid " + HeaderUserID)
	}
	return id, nil
}

func userFromBearer(header, secret string) (uuid.UUID, error) {
	tokenString, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return uuid.Nil, errors.New("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	if !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("invalid user id in token")
	}
	return id, nil
}
