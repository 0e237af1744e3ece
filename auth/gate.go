package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned when a request carries no valid credential.
var ErrUnauthorized = errors.New("auth: missing or invalid credentials")

// Identity is the resolved caller of a request. The tenant id scopes every
// document path the repository touches; an empty tenant means the shared
// default documents.
type Identity struct {
	TenantID string
	TokenID  string
}

// Gate performs the request-level authentication check before any handler
// runs. When disabled (single-user installs) every request passes with an
// empty identity.
type Gate struct {
	enabled bool
	store   *TokenStore
	logger  *zap.SugaredLogger
}

// NewGate creates an access gate backed by the given token store.
func NewGate(enabled bool, store *TokenStore, logger *zap.SugaredLogger) *Gate {
	return &Gate{
		enabled: enabled,
		store:   store,
		logger:  logger,
	}
}

// Enabled reports whether authentication is enforced.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Authenticate resolves the caller identity from the request. With the gate
// enabled a missing or invalid bearer token fails with ErrUnauthorized.
func (g *Gate) Authenticate(r *http.Request) (Identity, error) {
	if !g.enabled {
		return Identity{}, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, ErrUnauthorized
	}
	token := strings.TrimPrefix(header, "Bearer ")

	record, ok := g.store.Verify(token)
	if !ok {
		g.logger.Warnw("rejected request with invalid token", "path", r.URL.Path)
		return Identity{}, ErrUnauthorized
	}

	return Identity{
		TenantID: record.TenantID,
		TokenID:  record.ID,
	}, nil
}
