package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/bimate/backend/internal/infrastructure/auth"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Link context keys
const (
	LinkClaimsKey = "link_claims"
	LinkTokenKey  = "link_token"
)

// LinkValidator validates signed dashboard links
type LinkValidator interface {
	Validate(token string, scope auth.LinkScope) (*auth.Claims, error)
}

// LinkAuthConfig holds configuration for the link middleware
type LinkAuthConfig struct {
	Validator LinkValidator
	Scope     auth.LinkScope
	// Required rejects requests without a valid link. When false a valid link
	// is still recorded but a missing or bad one is ignored.
	Required bool
	// Secure marks the session cookie HTTPS-only
	Secure bool
	Logger *zap.Logger
}

// CookieName returns the cookie holding the link token of a scope
func CookieName(scope auth.LinkScope) string {
	return "bimate_" + string(scope)
}

// LinkAuth accepts a signed link token from the token query parameter or, on
// follow-up requests, from the scope cookie it sets.
func LinkAuth(cfg LinkAuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cookie := CookieName(cfg.Scope)

	return func(c *gin.Context) {
		token := c.Query(auth.TokenParam)
		fromQuery := token != ""
		if !fromQuery {
			token, _ = c.Cookie(cookie)
		}

		if token == "" {
			if cfg.Required {
				abortLink(c, cfg, auth.ErrInvalidToken)
				return
			}
			c.Next()
			return
		}

		claims, err := cfg.Validator.Validate(token, cfg.Scope)
		if err != nil {
			if cfg.Required {
				abortLink(c, cfg, err)
				return
			}
			cfg.Logger.Debug("ignoring invalid link", zap.Error(err))
			c.Next()
			return
		}

		if fromQuery {
			maxAge := 0
			if claims.ExpiresAt != nil {
				maxAge = int(time.Until(claims.ExpiresAt.Time).Seconds())
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookie, token, maxAge, "/", "", cfg.Secure, true)
		}
		c.Set(LinkClaimsKey, claims)
		c.Set(LinkTokenKey, token)

		ctx, _ := logger.WithChatUser(c.Request.Context(), logger.GetGinLogger(c), claims.UserID, claims.ChatID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetLinkClaims returns the claims of a validated link, or nil
func GetLinkClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(LinkClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetLinkToken returns the validated link token, or ""
func GetLinkToken(c *gin.Context) string {
	return c.GetString(LinkTokenKey)
}

func abortLink(c *gin.Context, cfg LinkAuthConfig, err error) {
	cfg.Logger.Warn("link authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	code := "ERR_TOKEN_INVALID"
	message := "Ссылка недействительна. Запросите новую в боте."
	if errors.Is(err, auth.ErrExpiredToken) {
		code = "ERR_TOKEN_EXPIRED"
		message = "Срок действия ссылки истек. Запросите новую в боте."
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
