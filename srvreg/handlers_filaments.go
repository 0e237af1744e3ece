package srvreg

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cdeck95/filament-tracking/repository"
	"github.com/cdeck95/filament-tracking/repository/models"
)

// decodeStrict decodes a JSON body and rejects unknown fields, so a typo'd
// or unexpected key fails loudly instead of being merged into the record.
func decodeStrict(body string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// filamentID parses the :id path segment.
func filamentID(req *Request) (int, *Response) {
	segment, ok := pathSegment(req.Path, 3)
	if !ok {
		return 0, errorResponse(http.StatusBadRequest, "Invalid path format")
	}
	id, err := strconv.Atoi(segment)
	if err != nil {
		return 0, errorResponse(http.StatusBadRequest, "Filament id must be an integer")
	}
	return id, nil
}

func findFilament(filaments []models.Filament, id int) int {
	for i, f := range filaments {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// ListFilamentsHandler returns the full filament collection. Loading also
// runs the repository's lazy backfill for records missing derived fields.
func (sr *ServiceRegistry) ListFilamentsHandler(ctx context.Context, req *Request) (*Response, error) {
	filaments, _, repoErr := sr.repository.LoadFilaments(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error fetching filaments"), nil
	}
	return jsonResponse(http.StatusOK, filaments), nil
}

// GetFilamentHandler returns one filament by id.
func (sr *ServiceRegistry) GetFilamentHandler(ctx context.Context, req *Request) (*Response, error) {
	id, errResp := filamentID(req)
	if errResp != nil {
		return errResp, nil
	}

	filaments, _, repoErr := sr.repository.LoadFilaments(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error fetching filament"), nil
	}

	index := findFilament(filaments, id)
	if index == -1 {
		return errorResponse(http.StatusNotFound, "Filament not found"), nil
	}

	return jsonResponse(http.StatusOK, filaments[index]), nil
}

// AddFilamentHandler creates a filament. The id is assigned server-side;
// any id in the request body is ignored.
func (sr *ServiceRegistry) AddFilamentHandler(ctx context.Context, req *Request) (*Response, error) {
	var newFilament models.Filament
	if err := decodeStrict(req.Body, &newFilament); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}

	filaments, rev, repoErr := sr.repository.LoadFilaments(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error adding filament"), nil
	}

	now := time.Now().UTC()
	newFilament.ID = repository.NextFilamentID(filaments)
	newFilament.CreatedAt = now
	newFilament.UpdatedAt = now
	if newFilament.StartingWeight == 0 && newFilament.Weight != nil && *newFilament.Weight > 0 {
		newFilament.StartingWeight = *newFilament.Weight
	}
	newFilament.SyncStatus()

	filaments = append(filaments, newFilament)
	if repoErr := sr.repository.SaveFilaments(ctx, req.Tenant, filaments, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error adding filament"), nil
	}

	sr.logger.Infow("added filament", "id", newFilament.ID, "brand", newFilament.Brand, "tenant", req.Tenant)
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"message":  "Filament added successfully",
		"filament": newFilament,
	}), nil
}

// ReplaceFilamentHandler overwrites a filament wholesale. The id and
// creation time of the stored record are kept; everything else comes from
// the request body.
func (sr *ServiceRegistry) ReplaceFilamentHandler(ctx context.Context, req *Request) (*Response, error) {
	id, errResp := filamentID(req)
	if errResp != nil {
		return errResp, nil
	}

	var updated models.Filament
	if err := decodeStrict(req.Body, &updated); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}

	filaments, rev, repoErr := sr.repository.LoadFilaments(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error updating filament"), nil
	}

	index := findFilament(filaments, id)
	if index == -1 {
		return errorResponse(http.StatusNotFound, "Filament not found"), nil
	}

	existing := filaments[index]
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	if updated.StartingWeight == 0 {
		updated.StartingWeight = existing.StartingWeight
	}
	if updated.StartingWeight == 0 && updated.Weight != nil && *updated.Weight > 0 {
		updated.StartingWeight = *updated.Weight
	}
	updated.SyncStatus()

	filaments[index] = updated
	if repoErr := sr.repository.SaveFilaments(ctx, req.Tenant, filaments, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error updating filament"), nil
	}

	return jsonResponse(http.StatusOK, filaments[index]), nil
}

// PatchFilamentHandler applies a partial update. Only recognized fields are
// accepted; setting weight to zero marks the spool empty.
func (sr *ServiceRegistry) PatchFilamentHandler(ctx context.Context, req *Request) (*Response, error) {
	id, errResp := filamentID(req)
	if errResp != nil {
		return errResp, nil
	}

	var patch models.FilamentPatch
	if err := decodeStrict(req.Body, &patch); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}

	filaments, rev, repoErr := sr.repository.LoadFilaments(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error updating filament"), nil
	}

	index := findFilament(filaments, id)
	if index == -1 {
		return errorResponse(http.StatusNotFound, "Filament not found"), nil
	}

	f := &filaments[index]
	patch.Apply(f)
	f.UpdatedAt = time.Now().UTC()
	if f.StartingWeight == 0 && f.Weight != nil && *f.Weight > 0 {
		f.StartingWeight = *f.Weight
	}

	if repoErr := sr.repository.SaveFilaments(ctx, req.Tenant, filaments, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error updating filament"), nil
	}

	return jsonResponse(http.StatusOK, filaments[index]), nil
}

// DeleteFilamentHandler removes a filament by id.
func (sr *ServiceRegistry) DeleteFilamentHandler(ctx context.Context, req *Request) (*Response, error) {
	id, errResp := filamentID(req)
	if errResp != nil {
		return errResp, nil
	}

	filaments, rev, repoErr := sr.repository.LoadFilaments(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error deleting filament"), nil
	}

	index := findFilament(filaments, id)
	if index == -1 {
		return errorResponse(http.StatusNotFound, "Filament not found"), nil
	}

	filaments = append(filaments[:index], filaments[index+1:]...)
	if repoErr := sr.repository.SaveFilaments(ctx, req.Tenant, filaments, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error deleting filament"), nil
	}

	sr.logger.Infow("deleted filament", "id", id, "tenant", req.Tenant)
	return messageResponse("Filament deleted successfully"), nil
}
