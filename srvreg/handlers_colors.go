package srvreg

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cdeck95/filament-tracking/repository/models"
)

// ListColorsHandler returns the full color collection.
func (sr *ServiceRegistry) ListColorsHandler(ctx context.Context, req *Request) (*Response, error) {
	colors, _, repoErr := sr.repository.LoadColors(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error fetching colors"), nil
	}

	resp := jsonResponse(http.StatusOK, colors)
	resp.Headers = map[string]string{
		"Content-Type":  "application/json",
		"Cache-Control": "no-store, max-age=0",
	}
	return resp, nil
}

// AddColorHandler appends a color unless one with the same name exists. A
// duplicate name is reported as success without touching the document.
func (sr *ServiceRegistry) AddColorHandler(ctx context.Context, req *Request) (*Response, error) {
	var newColor models.Color
	if err := json.Unmarshal([]byte(req.Body), &newColor); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	newColor.Name = strings.TrimSpace(newColor.Name)
	if newColor.Name == "" {
		return errorResponse(http.StatusBadRequest, "color name is required"), nil
	}

	colors, rev, repoErr := sr.repository.LoadColors(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error adding color"), nil
	}

	for _, color := range colors {
		if color.Name == newColor.Name {
			return messageResponse("Color added successfully"), nil
		}
	}

	colors = append(colors, newColor)
	if repoErr := sr.repository.SaveColors(ctx, req.Tenant, colors, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Error adding color"), nil
	}

	return messageResponse("Color added successfully"), nil
}

// UpdateColorHandler replaces the color stored under the name in the path.
func (sr *ServiceRegistry) UpdateColorHandler(ctx context.Context, req *Request) (*Response, error) {
	key, ok := pathSegment(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}

	var body struct {
		NewColor models.Color `json:"newColor"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}

	colors, rev, repoErr := sr.repository.LoadColors(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Failed to update color"), nil
	}

	index := -1
	for i, color := range colors {
		if color.Name == key {
			index = i
			break
		}
	}
	if index == -1 {
		return errorResponse(http.StatusNotFound, "Color not found"), nil
	}

	colors[index] = body.NewColor
	if repoErr := sr.repository.SaveColors(ctx, req.Tenant, colors, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Failed to update color"), nil
	}

	return messageResponse("Color updated successfully"), nil
}

// DeleteColorHandler removes a color by name.
func (sr *ServiceRegistry) DeleteColorHandler(ctx context.Context, req *Request) (*Response, error) {
	key, ok := pathSegment(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}

	colors, rev, repoErr := sr.repository.LoadColors(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Failed to delete color"), nil
	}

	kept := make([]models.Color, 0, len(colors))
	for _, color := range colors {
		if color.Name != key {
			kept = append(kept, color)
		}
	}
	if len(kept) == len(colors) {
		return errorResponse(http.StatusNotFound, "Color not found"), nil
	}

	if repoErr := sr.repository.SaveColors(ctx, req.Tenant, kept, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, "Failed to delete color"), nil
	}

	return messageResponse("Color deleted successfully"), nil
}
