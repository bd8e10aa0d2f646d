// Package visitor mints and validates the signed visitor identity that ties
// a browser to its consent record across requests.
package visitor

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "consentd/pkg/domain-errors"
)

// CookieName is the cookie carrying the signed visitor token.
const CookieName = "consentd_vid"

// DefaultTokenTTL keeps visitor identities stable across return visits
// without making them permanent.
const DefaultTokenTTL = 365 * 24 * time.Hour

// Claims represents the JWT claims for visitor tokens.
type Claims struct {
	VisitorID string `json:"visitor_id"`
	jwt.RegisteredClaims
}

// TokenService handles visitor token creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewTokenService(signingKey string, issuer string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        DefaultTokenTTL,
	}
}

// Mint issues a token for a brand new visitor and returns both the visitor
// ID and the signed token.
func (s *TokenService) Mint() (string, string, error) {
	visitorID := uuid.NewString()
	token, err := s.Generate(visitorID)
	return visitorID, token, err
}

// Generate signs a token for an existing visitor ID.
func (s *TokenService) Generate(visitorID string) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		VisitorID: visitorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// Validate parses a token and returns the visitor ID it carries. An expired
// or tampered token is not an auth failure here; callers mint a fresh
// identity instead.
func (s *TokenService) Validate(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeValidation, "visitor token has expired")
		}
		return "", dErrors.New(dErrors.CodeValidation, "invalid visitor token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.VisitorID == "" {
		return "", dErrors.New(dErrors.CodeValidation, "invalid visitor token claims")
	}

	if _, err := uuid.Parse(claims.VisitorID); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "malformed visitor id")
	}

	return claims.VisitorID, nil
}
