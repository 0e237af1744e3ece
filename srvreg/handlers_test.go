package srvreg_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/cdeck95/filament-tracking/repository"
	"github.com/cdeck95/filament-tracking/repository/models"
	"github.com/cdeck95/filament-tracking/srvreg"
	"github.com/cdeck95/filament-tracking/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) *srvreg.ServiceRegistry {
	t.Helper()
	repo := repository.NewRepository(storage.NewMemoryStore(), zap.NewNop().Sugar())
	registry := srvreg.NewServiceRegistry(repo, zap.NewNop().Sugar())
	registry.RegisterDefaultServices()
	return registry
}

func do(t *testing.T, registry *srvreg.ServiceRegistry, method, path, body string) *srvreg.Response {
	t.Helper()
	req := &srvreg.Request{Method: method, Path: path, Body: body}
	resp, err := req.GenerateResponse(context.Background(), registry)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func decodeBody(t *testing.T, resp *srvreg.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(resp.Body), v))
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	registry := newTestRegistry(t)
	resp := do(t, registry, "GET", "/api/spools", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBrandLifecycle(t *testing.T) {
	registry := newTestRegistry(t)

	resp := do(t, registry, "GET", "/api/brands", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "[]", resp.Body)

	resp = do(t, registry, "POST", "/api/brands", `{"brand":"Prusament"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Body, "Brand added successfully")

	resp = do(t, registry, "PATCH", "/api/brands/Prusament", `{"newBrand":"Prusament Premium"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var brands []string
	resp = do(t, registry, "GET", "/api/brands", "")
	decodeBody(t, resp, &brands)
	require.Equal(t, []string{"Prusament Premium"}, brands)

	resp = do(t, registry, "DELETE", "/api/brands/Prusament%20Premium", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, registry, "GET", "/api/brands", "")
	decodeBody(t, resp, &brands)
	require.Empty(t, brands)
}

func TestDuplicateAddIsIdempotent(t *testing.T) {
	registry := newTestRegistry(t)

	for i := 0; i < 3; i++ {
		resp := do(t, registry, "POST", "/api/materials", `{"material":"PLA"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Body, "Material added successfully")
	}

	var materials []string
	resp := do(t, registry, "GET", "/api/materials", "")
	decodeBody(t, resp, &materials)
	require.Equal(t, []string{"PLA"}, materials)
}

func TestAddBlankNameRejected(t *testing.T) {
	registry := newTestRegistry(t)

	resp := do(t, registry, "POST", "/api/brands", `{"brand":"   "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutateMissingNameReturnsNotFound(t *testing.T) {
	registry := newTestRegistry(t)

	resp := do(t, registry, "PATCH", "/api/brands/Nope", `{"newBrand":"Still nope"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, resp.Body, "Brand not found")

	resp = do(t, registry, "DELETE", "/api/materials/Nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, resp.Body, "Material not found")
}

func TestColorLifecycle(t *testing.T) {
	registry := newTestRegistry(t)

	resp := do(t, registry, "POST", "/api/colors", `{"name":"Galaxy Black","hex":"#1a1a2e"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Same name again, different hex: treated as a duplicate.
	resp = do(t, registry, "POST", "/api/colors", `{"name":"Galaxy Black","hex":"#000000"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, registry, "GET", "/api/colors", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store, max-age=0", resp.Headers["Cache-Control"])

	var colors []models.Color
	decodeBody(t, resp, &colors)
	require.Len(t, colors, 1)
	require.Equal(t, "#1a1a2e", colors[0].Hex)

	resp = do(t, registry, "PATCH", "/api/colors/Galaxy%20Black", `{"newColor":{"name":"Jet Black","hex":"#000000"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, registry, "DELETE", "/api/colors/Jet%20Black", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, registry, "DELETE", "/api/colors/Jet%20Black", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFilamentLifecycle(t *testing.T) {
	registry := newTestRegistry(t)

	resp := do(t, registry, "POST", "/api/filaments",
		`{"brand":"Prusament","material":"PLA","color":{"name":"Black","hex":"#000000"},"weight":850,"location":"Shelf A"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		Message  string          `json:"message"`
		Filament models.Filament `json:"filament"`
	}
	decodeBody(t, resp, &created)
	require.Equal(t, "Filament added successfully", created.Message)
	require.Equal(t, 1, created.Filament.ID)
	require.Equal(t, 850.0, created.Filament.StartingWeight)
	require.Equal(t, models.StatusActive, created.Filament.Status)
	require.False(t, created.Filament.CreatedAt.IsZero())

	resp = do(t, registry, "GET", "/api/filaments/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Spending the whole spool flips it to empty, the starting weight
	// keeps the original snapshot.
	resp = do(t, registry, "PATCH", "/api/filaments/1", `{"weight":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var patched models.Filament
	decodeBody(t, resp, &patched)
	require.Equal(t, models.StatusEmpty, patched.Status)
	require.Equal(t, 850.0, patched.StartingWeight)
	require.Equal(t, "Shelf A", patched.Location)

	resp = do(t, registry, "PUT", "/api/filaments/1",
		`{"brand":"Prusament","material":"PLA","color":{"name":"Black","hex":"#000000"},"weight":970,"location":"Shelf B"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var replaced models.Filament
	decodeBody(t, resp, &replaced)
	require.Equal(t, 1, replaced.ID)
	require.Equal(t, created.Filament.CreatedAt, replaced.CreatedAt)
	require.Equal(t, models.StatusActive, replaced.Status)
	require.Equal(t, "Shelf B", replaced.Location)

	resp = do(t, registry, "DELETE", "/api/filaments/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Body, "Filament deleted successfully")

	resp = do(t, registry, "GET", "/api/filaments/1", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, resp.Body, "Filament not found")
}

func TestFilamentIDsAreSequential(t *testing.T) {
	registry := newTestRegistry(t)

	for i := 1; i <= 3; i++ {
		body := fmt.Sprintf(`{"brand":"Brand %d","material":"PLA","weight":1000}`, i)
		resp := do(t, registry, "POST", "/api/filaments", body)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var created struct {
			Filament models.Filament `json:"filament"`
		}
		decodeBody(t, resp, &created)
		require.Equal(t, i, created.Filament.ID)
	}
}

func TestPatchUnknownFieldRejected(t *testing.T) {
	registry := newTestRegistry(t)

	do(t, registry, "POST", "/api/filaments", `{"brand":"Prusament","material":"PLA","weight":850}`)

	resp := do(t, registry, "PATCH", "/api/filaments/1", `{"wieght":100}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The typo'd patch did not touch the record.
	resp = do(t, registry, "GET", "/api/filaments/1", "")
	var f models.Filament
	decodeBody(t, resp, &f)
	require.NotNil(t, f.Weight)
	require.Equal(t, 850.0, *f.Weight)
}

func TestFilamentIDMustBeInteger(t *testing.T) {
	registry := newTestRegistry(t)

	resp := do(t, registry, "GET", "/api/filaments/abc", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutateMissingFilamentReturnsNotFound(t *testing.T) {
	registry := newTestRegistry(t)

	for _, method := range []string{"PATCH", "PUT", "DELETE"} {
		body := ""
		if method != "DELETE" {
			body = `{"weight":100}`
		}
		resp := do(t, registry, method, "/api/filaments/999", body)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, method)
		require.Contains(t, resp.Body, "Filament not found")
	}
}

func TestTenantsAreIsolatedAfterFirstWrite(t *testing.T) {
	registry := newTestRegistry(t)

	alice := &srvreg.Request{Method: "POST", Path: "/api/brands", Body: `{"brand":"Prusament"}`, Tenant: "alice"}
	resp, err := alice.GenerateResponse(context.Background(), registry)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bob := &srvreg.Request{Method: "GET", Path: "/api/brands", Tenant: "bob"}
	resp, err = bob.GenerateResponse(context.Background(), registry)
	require.NoError(t, err)

	var brands []string
	decodeBody(t, resp, &brands)
	require.Empty(t, brands)
}
