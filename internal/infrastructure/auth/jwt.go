// Package auth signs and verifies the short-lived dashboard links handed out by the bot.
package auth

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LinkScope names the dashboard a link opens
type LinkScope string

const (
	ScopeSales    LinkScope = "sales"
	ScopeProducts LinkScope = "products"
)

// Path returns the web path of the scope
func (s LinkScope) Path() string {
	return "/" + string(s)
}

// TokenParam is the query parameter carrying the link token
const TokenParam = "token"

const defaultIssuer = "bimate"

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidScope     = errors.New("token scope does not match")
	ErrMissingSecret    = errors.New("link secret is not configured")
)

// Claims are the claims of a dashboard link
type Claims struct {
	jwt.RegisteredClaims
	UserID int64     `json:"user_id"`
	ChatID int64     `json:"chat_id"`
	Scope  LinkScope `json:"scope"`
}

// Link is an issued dashboard link
type Link struct {
	URL       string
	Token     string
	ExpiresAt time.Time
}

// LinkService issues and validates signed dashboard links
type LinkService struct {
	secret    []byte
	ttl       time.Duration
	publicURL string
	issuer    string
	now       func() time.Time
}

// NewLinkService creates a new link service
func NewLinkService(cfg config.WebConfig) *LinkService {
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LinkService{
		secret:    []byte(cfg.LinkSecret),
		ttl:       ttl,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		issuer:    defaultIssuer,
		now:       time.Now,
	}
}

// Issue signs a link for the user and scope.
func (s *LinkService) Issue(userID, chatID int64, scope LinkScope) (*Link, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{string(scope)},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
		ChatID: chatID,
		Scope:  scope,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set(TokenParam, token)
	return &Link{
		URL:       s.publicURL + scope.Path() + "?" + q.Encode(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies the token and its scope and returns its claims.
func (s *LinkService) Validate(tokenString string, scope LinkScope) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Scope != scope {
		return nil, ErrInvalidScope
	}
	return claims, nil
}

// Plain returns the unsigned dashboard URL, used when links are not required.
func (s *LinkService) Plain(scope LinkScope) string {
	return s.publicURL + scope.Path()
}

// TTL returns the link lifetime
func (s *LinkService) TTL() time.Duration {
	return s.ttl
}
