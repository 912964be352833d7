package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "folio-chat"

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenResolver signs and checks HS256 session tokens.
type TokenResolver struct {
	secret []byte
}

func NewTokenResolver(secret string) *TokenResolver {
	return &TokenResolver{secret: []byte(secret)}
}

// GenerateToken creates a signed token for userID valid for duration.
func (r *TokenResolver) GenerateToken(userID domain.UserID, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// ValidateToken checks signature, algorithm and expiration.
func (r *TokenResolver) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// Resolve implements the identity lookup used at connection upgrade.
func (r *TokenResolver) Resolve(_ context.Context, credential string) (domain.UserID, error) {
	if credential == "" {
		return "", errors.ErrUnauthenticated
	}
	claims, err := r.ValidateToken(credential)
	if err != nil {
		return "", err
	}
	// Conversation ids join two users with the separator, so it cannot appear in an identity
	if strings.Contains(claims.UserID, domain.ConversationSeparator) {
		return "", fmt.Errorf("%w: user id contains %q", errors.ErrInvalidToken, domain.ConversationSeparator)
	}
	return domain.UserID(claims.UserID), nil
}
