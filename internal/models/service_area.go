package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ServiceArea is a single-polygon geographic region within which one service
// is offered. Geometry is stored as a JSON-serialized GeoJSON Polygon; the
// single-polygon invariant is enforced before every write, not by the column.
type ServiceArea struct {
	bun.BaseModel `bun:"table:service_areas,alias:sa"`

	ID         uuid.UUID `bun:",pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	CompanyID  uuid.UUID `bun:"company_id,type:uuid,notnull" json:"company_id"`
	ServiceID  uuid.UUID `bun:"service_id,type:uuid,notnull" json:"service_id"`
	Geometry   string    `bun:"geometry,type:jsonb,notnull" json:"geometry"`
	IsActive   bool      `bun:"is_active,notnull,default:true" json:"is_active"`
	OwnerEmail string    `bun:"owner_email,notnull" json:"owner_email"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// CreateServiceAreaParams carries a new area across the gateway boundary.
// OwnerEmail is always the caller's verified email; the gateway stamps it on
// the new row and ignores any client-supplied owner.
type CreateServiceAreaParams struct {
	CompanyID  uuid.UUID `json:"company_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	Geometry   string    `json:"geometry"`
	IsActive   bool      `json:"is_active"`
	OwnerEmail string    `json:"-"`
}

// UpdateServiceAreaParams mutates an existing area. The gateway refuses the
// update unless a row matches both ID and OwnerEmail.
type UpdateServiceAreaParams struct {
	ID         uuid.UUID `json:"id"`
	ServiceID  uuid.UUID `json:"service_id"`
	Geometry   string    `json:"geometry"`
	IsActive   bool      `json:"is_active"`
	OwnerEmail string    `json:"-"`
}

// ServiceAreaFeature is one service area rendered as a styled GeoJSON feature.
type ServiceAreaFeature struct {
	ID         uuid.UUID              `json:"id"`
	Type       string                 `json:"type"` // "Feature"
	Geometry   map[string]interface{} `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// ServiceAreasResponse is the API response for area listings.
type ServiceAreasResponse struct {
	Type     string               `json:"type"` // "FeatureCollection"
	Features []ServiceAreaFeature `json:"features"`
	Count    int                  `json:"count"`
}
