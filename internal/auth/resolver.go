// ABOUTME: Resolves inbound Authorization headers to a local user id.
// ABOUTME: Creates the user record on first sight of an external identity.

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/macrolog/macro-gateway/internal/store"
)

// ErrNoCredentials is returned when the request carries no usable bearer token.
var ErrNoCredentials = errors.New("no credentials provided")

// Resolver turns request headers into a resolved local user id.
type Resolver struct {
	store    store.Store
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewResolver creates a resolver backed by the given store and verifier.
func NewResolver(s store.Store, verifier TokenVerifier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: s, verifier: verifier, logger: logger.With("component", "auth")}
}

// ResolveHeaders extracts and verifies the bearer token, then maps the
// external subject to a local user id, creating the user on first sight.
func (r *Resolver) ResolveHeaders(ctx context.Context, headers http.Header) (string, error) {
	authHeader := headers.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoCredentials
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", ErrNoCredentials
	}

	subject, err := r.verifier.Verify(token)
	if err != nil {
		return "", err
	}

	user, err := r.store.GetUserByExternalID(ctx, subject)
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("looking up user: %w", err)
	}

	user = &store.User{ID: uuid.New().String(), ExternalID: subject}
	if err := r.store.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent first request for the same subject.
		if existing, lookupErr := r.store.GetUserByExternalID(ctx, subject); lookupErr == nil {
			return existing.ID, nil
		}
		return "", fmt.Errorf("creating user: %w", err)
	}

	r.logger.Info("created user for new external identity", "user_id", user.ID)
	return user.ID, nil
}
