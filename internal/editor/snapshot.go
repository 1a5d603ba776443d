package editor

import (
	"github.com/google/uuid"

	"areas-bknd/internal/geometry"
	"areas-bknd/internal/models"
)

// AreaDetail backs the detail panel for the selected area: the associated
// service's name, category and description plus the active badge.
type AreaDetail struct {
	AreaID          uuid.UUID       `json:"area_id"`
	ServiceID       uuid.UUID       `json:"service_id"`
	ServiceName     string          `json:"service_name"`
	Category        models.Category `json:"category"`
	CategoryDisplay string          `json:"category_display"`
	CategoryIcon    string          `json:"category_icon"`
	Description     string          `json:"description"`
	IsActive        bool            `json:"is_active"`
}

// Snapshot is the editor state returned to the client after every action.
type Snapshot struct {
	Mode          string           `json:"mode"`
	EditingAreaID *uuid.UUID       `json:"editing_area_id,omitempty"`
	SelectedArea  *uuid.UUID       `json:"selected_area_id,omitempty"`
	Detail        *AreaDetail      `json:"detail,omitempty"`
	ServiceID     *uuid.UUID       `json:"service_id,omitempty"`
	IsActive      bool             `json:"is_active"`
	Candidate     *string          `json:"candidate_geometry,omitempty"`
	Busy          bool             `json:"busy"`
	Services      []models.Service `json:"services"`
	Shapes        []geometry.Shape `json:"shapes"`
}

// Snapshot renders the current editor state, including every persisted area
// as a styled shape (active and inactive areas are visually distinct).
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		Mode:     e.mode.String(),
		IsActive: e.isActive,
		Busy:     e.busy,
	}
	if id, ok := e.mode.EditingArea(); ok {
		snap.EditingAreaID = &id
	}
	if e.selection != uuid.Nil {
		sel := e.selection
		snap.SelectedArea = &sel
	}
	if e.serviceID != uuid.Nil {
		svc := e.serviceID
		snap.ServiceID = &svc
	}
	if e.candidate != nil {
		if geom, err := geometry.EncodePolygon(e.candidate); err == nil {
			snap.Candidate = &geom
		}
	}
	e.mu.Unlock()

	snap.Services = e.store.Services()
	snap.Shapes = make([]geometry.Shape, 0)
	for _, area := range e.store.Areas() {
		props := map[string]interface{}{"serviceId": area.ServiceID.String()}
		if svc, ok := e.store.Service(area.ServiceID); ok {
			props["serviceName"] = svc.Name
			props["category"] = string(svc.Category)
		}
		shape, err := geometry.AreaShape(area.ID.String(), area.Geometry, area.IsActive, props)
		if err != nil {
			e.logr.Warn("skipping area with undecodable geometry")
			continue
		}
		snap.Shapes = append(snap.Shapes, shape)
	}

	if snap.SelectedArea != nil {
		if area, ok := e.store.Area(*snap.SelectedArea); ok {
			detail := AreaDetail{
				AreaID:    area.ID,
				ServiceID: area.ServiceID,
				IsActive:  area.IsActive,
			}
			if svc, ok := e.store.Service(area.ServiceID); ok {
				detail.ServiceName = svc.Name
				detail.Category = svc.Category
				detail.CategoryDisplay = svc.Category.Display()
				detail.CategoryIcon = svc.Category.Icon()
				detail.Description = svc.Description
			}
			snap.Detail = &detail
		}
	}
	return snap
}
