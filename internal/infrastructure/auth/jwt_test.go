package auth

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinkService() *LinkService {
	return NewLinkService(config.WebConfig{
		PublicURL:  "https://bi.example.com/",
		LinkSecret: "test-secret-key-at-least-32-chars",
		LinkTTL:    15 * time.Minute,
	})
}

func TestNewLinkService(t *testing.T) {
	svc := newTestLinkService()

	assert.Equal(t, 15*time.Minute, svc.TTL())
	assert.Equal(t, "https://bi.example.com", svc.publicURL)
	assert.Equal(t, "https://bi.example.com/products", svc.Plain(ScopeProducts))
}

func TestNewLinkService_DefaultTTL(t *testing.T) {
	svc := NewLinkService(config.WebConfig{LinkSecret: "s"})
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestIssue(t *testing.T) {
	svc := newTestLinkService()

	link, err := svc.Issue(42, 4200, ScopeSales)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "https://bi.example.com/sales?token="))
	assert.True(t, link.ExpiresAt.After(time.Now()))

	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, link.Token, u.Query().Get(TokenParam))
}

func TestIssue_MissingSecret(t *testing.T) {
	svc := NewLinkService(config.WebConfig{PublicURL: "https://bi.example.com"})

	_, err := svc.Issue(1, 1, ScopeSales)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestValidate_Success(t *testing.T) {
	svc := newTestLinkService()
	link, err := svc.Issue(42, 4200, ScopeProducts)
	require.NoError(t, err)

	claims, err := svc.Validate(link.Token, ScopeProducts)

	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, int64(4200), claims.ChatID)
	assert.Equal(t, ScopeProducts, claims.Scope)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidate_Errors(t *testing.T) {
	svc := newTestLinkService()
	link, err := svc.Issue(42, 4200, ScopeSales)
	require.NoError(t, err)

	t.Run("wrong scope", func(t *testing.T) {
		_, err := svc.Validate(link.Token, ScopeProducts)
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token", ScopeSales)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewLinkService(config.WebConfig{LinkSecret: "another-secret-key-of-32-chars!!"})
		_, err := other.Validate(link.Token, ScopeSales)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := newTestLinkService()
		later.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err := later.Validate(link.Token, ScopeSales)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		earlier := newTestLinkService()
		earlier.now = func() time.Time { return time.Now().Add(-time.Hour) }
		_, err := earlier.Validate(link.Token, ScopeSales)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Scope: ScopeSales})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(s, ScopeSales)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
