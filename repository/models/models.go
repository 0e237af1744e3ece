package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Filament status values. A spool is active while it still has material on
// it; marking the weight down to zero moves it to empty.
const (
	StatusActive = "active"
	StatusEmpty  = "empty"
)

// Color is a named color swatch used by filaments.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// UnmarshalJSON accepts both the current object shape and the legacy bare
// string shape that older documents were written with. Legacy values are
// migrated to the object shape with an empty hex.
func (c *Color) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		c.Name = name
		c.Hex = ""
		return nil
	}

	type colorAlias Color
	var alias colorAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*c = Color(alias)
	return nil
}

// Filament represents one spool of filament.
type Filament struct {
	ID             int       `json:"id"`
	Brand          string    `json:"brand"`
	Material       string    `json:"material"`
	Color          Color     `json:"color"`
	Weight         *float64  `json:"weight"` // grams remaining, 0 means empty
	StartingWeight float64   `json:"startingWeight,omitempty"`
	Location       string    `json:"location,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Status         string    `json:"status,omitempty"` // active, empty
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// DeriveStatus computes the lifecycle status implied by the remaining
// weight. Only a spool with a known positive weight counts as active, which
// matches how clients partition the collection.
func DeriveStatus(weight *float64) string {
	if weight != nil && *weight > 0 {
		return StatusActive
	}
	return StatusEmpty
}

// SyncStatus refreshes the stored status from the current weight.
func (f *Filament) SyncStatus() {
	f.Status = DeriveStatus(f.Weight)
}

// FilamentPatch is a partial update to a filament. Only the fields that are
// present in the request body are applied; unknown fields are rejected at
// decode time rather than silently merged.
type FilamentPatch struct {
	Brand    *string  `json:"brand"`
	Material *string  `json:"material"`
	Color    *Color   `json:"color"`
	Weight   *float64 `json:"weight"`
	Location *string  `json:"location"`
	Notes    *string  `json:"notes"`
}

// Apply merges the patch over an existing filament and keeps the derived
// fields consistent. The record id is never touched.
func (p *FilamentPatch) Apply(f *Filament) {
	if p.Brand != nil {
		f.Brand = *p.Brand
	}
	if p.Material != nil {
		f.Material = *p.Material
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	if p.Weight != nil {
		f.Weight = p.Weight
	}
	if p.Location != nil {
		f.Location = *p.Location
	}
	if p.Notes != nil {
		f.Notes = *p.Notes
	}
	f.SyncStatus()
}

// Collection document names. Each entity is stored as one JSON array per
// tenant at a fixed pathname.
const (
	EntityBrands    = "brands"
	EntityMaterials = "materials"
	EntityColors    = "colors"
	EntityFilaments = "filaments"
)

// DocumentPath resolves the blob pathname for an entity document. Tenant
// documents live under a tenant prefix, the shared default document at the
// bare name.
func DocumentPath(entity, tenant string) string {
	if tenant == "" {
		return entity + ".json"
	}
	return fmt.Sprintf("%s/%s.json", tenant, entity)
}
