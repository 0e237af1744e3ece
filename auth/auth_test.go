package auth_test

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cdeck95/filament-tracking/auth"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*auth.TokenStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := auth.NewTokenStore(path)
	require.NoError(t, err)
	return store, path
}

func TestIssueAndVerify(t *testing.T) {
	store, _ := newTestStore(t)

	token, err := store.Issue("alice", "laptop")
	require.NoError(t, err)
	require.Contains(t, token, "ft_")

	record, ok := store.Verify(token)
	require.True(t, ok)
	require.Equal(t, "alice", record.TenantID)
	require.Equal(t, "laptop", record.Name)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	store, _ := newTestStore(t)

	token, err := store.Issue("alice", "laptop")
	require.NoError(t, err)

	_, ok := store.Verify("not-a-token")
	require.False(t, ok)

	_, ok = store.Verify("ft_deadbeef.c2VjcmV0")
	require.False(t, ok)

	// Right id, wrong secret.
	_, ok = store.Verify(token[:len(token)-4] + "XXXX")
	require.False(t, ok)
}

func TestTokensSurviveReload(t *testing.T) {
	store, path := newTestStore(t)

	token, err := store.Issue("alice", "laptop")
	require.NoError(t, err)

	reloaded, err := auth.NewTokenStore(path)
	require.NoError(t, err)

	record, ok := reloaded.Verify(token)
	require.True(t, ok)
	require.Equal(t, "alice", record.TenantID)
}

func TestTokenFilePermissions(t *testing.T) {
	store, path := newTestStore(t)

	_, err := store.Issue("alice", "laptop")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t)

	token, err := store.Issue("alice", "laptop")
	require.NoError(t, err)

	record, ok := store.Verify(token)
	require.True(t, ok)

	removed, err := store.Revoke(record.ID)
	require.NoError(t, err)
	require.True(t, removed)

	_, ok = store.Verify(token)
	require.False(t, ok)

	removed, err = store.Revoke(record.ID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestGateDisabledPassesEveryRequest(t *testing.T) {
	gate := auth.NewGate(false, nil, zap.NewNop().Sugar())

	req := httptest.NewRequest("GET", "/api/brands", nil)
	identity, err := gate.Authenticate(req)
	require.NoError(t, err)
	require.Empty(t, identity.TenantID)
}

func TestGateEnabled(t *testing.T) {
	store, _ := newTestStore(t)
	token, err := store.Issue("alice", "laptop")
	require.NoError(t, err)

	gate := auth.NewGate(true, store, zap.NewNop().Sugar())
	require.True(t, gate.Enabled())

	req := httptest.NewRequest("GET", "/api/brands", nil)
	_, authErr := gate.Authenticate(req)
	require.ErrorIs(t, authErr, auth.ErrUnauthorized)

	req.Header.Set("Authorization", "Bearer nope")
	_, authErr = gate.Authenticate(req)
	require.ErrorIs(t, authErr, auth.ErrUnauthorized)

	req.Header.Set("Authorization", "Bearer "+token)
	identity, authErr := gate.Authenticate(req)
	require.NoError(t, authErr)
	require.Equal(t, "alice", identity.TenantID)
}
