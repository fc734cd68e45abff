// Package auth resolves the identity behind an inbound request.
//
// Gateway.Authenticate is a pure function of the Authorization header, the
// token service and the credential store. The HTTP layer calls it before
// any protected handler and short-circuits with 401 on error.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/repository"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("unknown user")
)

type SessionVerifier interface {
	VerifySession(token string, now time.Time) (string, error)
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
}

type Gateway struct {
	tokens SessionVerifier
	users  UserFinder
	now    func() time.Time
}

func NewGateway(tokens SessionVerifier, users UserFinder) *Gateway {
	return &Gateway{tokens: tokens, users: users, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// Authenticate returns the user identified by the bearer token in header.
// Every authentication failure is an apperrors Unauthorized error whose
// chain contains ErrMissingToken, ErrInvalidToken or ErrUnknownUser.
func (g *Gateway) Authenticate(ctx context.Context, header string) (*entities.User, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, apperrors.Unauthorized(ErrMissingToken)
	}

	email, err := g.tokens.VerifySession(token, g.now())
	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	user, err := g.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized(ErrUnknownUser)
	}
	if err != nil {
		return nil, apperrors.Dependency("Failed to load user", err)
	}

	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
