package srvreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cdeck95/filament-tracking/repository"
)

// Brands and materials share the same shape: an ordered list of unique
// names stored as one JSON array document. nameCollection binds the shared
// handler logic to one of the two entities.
type nameCollection struct {
	singular string
	display  string
	load     loadNamesFunc
	save     saveNamesFunc
}

type loadNamesFunc = func(context.Context, string) ([]string, repository.Revision, *repository.RepositoryError)
type saveNamesFunc = func(context.Context, string, []string, repository.Revision) *repository.RepositoryError

func (sr *ServiceRegistry) brandCollection() nameCollection {
	return nameCollection{
		singular: "brand",
		display:  "Brand",
		load:     sr.repository.LoadBrands,
		save:     sr.repository.SaveBrands,
	}
}

func (sr *ServiceRegistry) materialCollection() nameCollection {
	return nameCollection{
		singular: "material",
		display:  "Material",
		load:     sr.repository.LoadMaterials,
		save:     sr.repository.SaveMaterials,
	}
}

func (sr *ServiceRegistry) listNames(ctx context.Context, req *Request, col nameCollection) (*Response, error) {
	names, _, repoErr := col.load(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Error fetching %ss", col.singular)), nil
	}
	return jsonResponse(http.StatusOK, names), nil
}

// addName appends a trimmed name unless an equal one already exists. A
// duplicate is reported as success without touching the document.
func (sr *ServiceRegistry) addName(ctx context.Context, req *Request, col nameCollection, value string) (*Response, error) {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("%s is required", col.singular)), nil
	}

	names, rev, repoErr := col.load(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Error adding %s", col.singular)), nil
	}

	for _, name := range names {
		if name == normalized {
			return messageResponse(fmt.Sprintf("%s added successfully", col.display)), nil
		}
	}

	names = append(names, normalized)
	if repoErr := col.save(ctx, req.Tenant, names, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Error adding %s", col.singular)), nil
	}

	return messageResponse(fmt.Sprintf("%s added successfully", col.display)), nil
}

func (sr *ServiceRegistry) updateName(ctx context.Context, req *Request, col nameCollection, newValue string) (*Response, error) {
	key, ok := pathSegment(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}

	names, rev, repoErr := col.load(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Failed to update %s", col.singular)), nil
	}

	index := -1
	for i, name := range names {
		if name == key {
			index = i
			break
		}
	}
	if index == -1 {
		return errorResponse(http.StatusNotFound, fmt.Sprintf("%s not found", col.display)), nil
	}

	names[index] = newValue
	if repoErr := col.save(ctx, req.Tenant, names, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Failed to update %s", col.singular)), nil
	}

	return messageResponse(fmt.Sprintf("%s updated successfully", col.display)), nil
}

func (sr *ServiceRegistry) deleteName(ctx context.Context, req *Request, col nameCollection) (*Response, error) {
	key, ok := pathSegment(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}

	names, rev, repoErr := col.load(ctx, req.Tenant)
	if repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Failed to delete %s", col.singular)), nil
	}

	kept := make([]string, 0, len(names))
	for _, name := range names {
		if name != key {
			kept = append(kept, name)
		}
	}
	if len(kept) == len(names) {
		return errorResponse(http.StatusNotFound, fmt.Sprintf("%s not found", col.display)), nil
	}

	if repoErr := col.save(ctx, req.Tenant, kept, rev); repoErr != nil {
		return sr.repoErrorResponse(repoErr, fmt.Sprintf("Failed to delete %s", col.singular)), nil
	}

	return messageResponse(fmt.Sprintf("%s deleted successfully", col.display)), nil
}

// ListBrandsHandler returns the full brand collection.
func (sr *ServiceRegistry) ListBrandsHandler(ctx context.Context, req *Request) (*Response, error) {
	return sr.listNames(ctx, req, sr.brandCollection())
}

// AddBrandHandler appends a brand unless it already exists.
func (sr *ServiceRegistry) AddBrandHandler(ctx context.Context, req *Request) (*Response, error) {
	var body struct {
		Brand string `json:"brand"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	return sr.addName(ctx, req, sr.brandCollection(), body.Brand)
}

// UpdateBrandHandler renames a brand in place.
func (sr *ServiceRegistry) UpdateBrandHandler(ctx context.Context, req *Request) (*Response, error) {
	var body struct {
		NewBrand string `json:"newBrand"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	return sr.updateName(ctx, req, sr.brandCollection(), body.NewBrand)
}

// DeleteBrandHandler removes a brand by name.
func (sr *ServiceRegistry) DeleteBrandHandler(ctx context.Context, req *Request) (*Response, error) {
	return sr.deleteName(ctx, req, sr.brandCollection())
}

// ListMaterialsHandler returns the full material collection.
func (sr *ServiceRegistry) ListMaterialsHandler(ctx context.Context, req *Request) (*Response, error) {
	return sr.listNames(ctx, req, sr.materialCollection())
}

// AddMaterialHandler appends a material unless it already exists.
func (sr *ServiceRegistry) AddMaterialHandler(ctx context.Context, req *Request) (*Response, error) {
	var body struct {
		Material string `json:"material"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	return sr.addName(ctx, req, sr.materialCollection(), body.Material)
}

// UpdateMaterialHandler renames a material in place.
func (sr *ServiceRegistry) UpdateMaterialHandler(ctx context.Context, req *Request) (*Response, error) {
	var body struct {
		NewMaterial string `json:"newMaterial"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	return sr.updateName(ctx, req, sr.materialCollection(), body.NewMaterial)
}

// DeleteMaterialHandler removes a material by name.
func (sr *ServiceRegistry) DeleteMaterialHandler(ctx context.Context, req *Request) (*Response, error) {
	return sr.deleteName(ctx, req, sr.materialCollection())
}
