package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"areas-bknd/internal/geometry"
	"areas-bknd/internal/middleware"
	"areas-bknd/internal/models"
	"areas-bknd/internal/services"
	"areas-bknd/internal/utils"
)

type ServiceAreaHandler struct {
	areas    *services.ServiceAreaService
	services *services.ServiceService
	logr     *zap.Logger
}

func NewServiceAreaHandler(areas *services.ServiceAreaService, svcs *services.ServiceService, logr *zap.Logger) *ServiceAreaHandler {
	return &ServiceAreaHandler{areas: areas, services: svcs, logr: logr}
}

// GetServiceAreas returns the company's service areas as a styled GeoJSON
// FeatureCollection. Supports ?active=true|false and ?category=a,b filters.
func (h *ServiceAreaHandler) GetServiceAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	areas, err := h.areas.ListServiceAreas(ctx, id.CompanyID)
	if err != nil {
		h.logr.Error("failed to list service areas", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve service areas"})
		return
	}
	svcs, err := h.services.ListServices(ctx, id.CompanyID)
	if err != nil {
		h.logr.Error("failed to list services", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve service areas"})
		return
	}
	byID := make(map[uuid.UUID]models.Service, len(svcs))
	for _, svc := range svcs {
		byID[svc.ID] = svc
	}

	q := r.URL.Query()
	var activeFilter *bool
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active parameter"})
			return
		}
		activeFilter = &b
	}
	categories := utils.ParseQueryList(q, "category")
	wantCategory := func(c models.Category) bool {
		if len(categories) == 0 {
			return true
		}
		for _, want := range categories {
			if string(c) == want {
				return true
			}
		}
		return false
	}

	features := make([]models.ServiceAreaFeature, 0, len(areas))
	for _, area := range areas {
		if activeFilter != nil && area.IsActive != *activeFilter {
			continue
		}
		svc, ok := byID[area.ServiceID]
		if ok && !wantCategory(svc.Category) {
			continue
		}
		f, err := areaFeature(area, svc)
		if err != nil {
			h.logr.Warn("skipping area with invalid geometry", zap.String("id", area.ID.String()), zap.Error(err))
			continue
		}
		features = append(features, f)
	}

	writeJSON(w, http.StatusOK, models.ServiceAreasResponse{
		Type:     "FeatureCollection",
		Features: features,
		Count:    len(features),
	})
}

// GetServiceAreaByID returns a single service area as a GeoJSON feature.
func (h *ServiceAreaHandler) GetServiceAreaByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id parameter"})
		return
	}

	area, err := h.areas.GetServiceArea(ctx, id.CompanyID, areaID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "service area not found"})
			return
		}
		h.logr.Error("failed to get service area", zap.Error(err), zap.String("id", areaID.String()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve service area"})
		return
	}

	var svc models.Service
	if svcs, err := h.services.ListServices(ctx, id.CompanyID); err == nil {
		for _, s := range svcs {
			if s.ID == area.ServiceID {
				svc = s
				break
			}
		}
	}
	f, err := areaFeature(*area, svc)
	if err != nil {
		h.logr.Error("stored geometry does not decode", zap.Error(err), zap.String("id", areaID.String()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve service area"})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type createAreaReq struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Geometry  json.RawMessage `json:"geometry"`
	IsActive  *bool           `json:"is_active"`
}

// CreateServiceArea persists a new area. Owner email and company come from
// the verified session, never from the body.
func (h *ServiceAreaHandler) CreateServiceArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req createAreaReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ServiceID == uuid.Nil || len(req.Geometry) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required fields"})
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	area, err := h.areas.CreateServiceArea(ctx, models.CreateServiceAreaParams{
		CompanyID:  id.CompanyID,
		ServiceID:  req.ServiceID,
		Geometry:   string(req.Geometry),
		IsActive:   isActive,
		OwnerEmail: id.Email,
	})
	if err != nil {
		h.writeAreaError(w, "error creating service area", err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

type updateAreaReq struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Geometry  json.RawMessage `json:"geometry"`
	IsActive  bool            `json:"is_active"`
}

// UpdateServiceArea mutates an area under the (id, owner email) scope.
func (h *ServiceAreaHandler) UpdateServiceArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id parameter"})
		return
	}

	var req updateAreaReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ServiceID == uuid.Nil || len(req.Geometry) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required fields"})
		return
	}

	area, err := h.areas.UpdateServiceArea(ctx, models.UpdateServiceAreaParams{
		ID:         areaID,
		ServiceID:  req.ServiceID,
		Geometry:   string(req.Geometry),
		IsActive:   req.IsActive,
		OwnerEmail: id.Email,
	})
	if err != nil {
		h.writeAreaError(w, "error updating service area", err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

// DeleteServiceArea permanently removes an area under the same scope.
func (h *ServiceAreaHandler) DeleteServiceArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id parameter"})
		return
	}

	if err := h.areas.DeleteServiceArea(ctx, areaID, id.Email); err != nil {
		h.writeAreaError(w, "error deleting service area", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lookup is the consumer-facing query: active service areas of a company
// containing a point. Public, no session required.
func (h *ServiceAreaHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	companyID, err := uuid.Parse(q.Get("company_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid company_id parameter"})
		return
	}
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLng != nil || errLat != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lng and lat are required"})
		return
	}

	exists, err := h.areas.CompanyExists(ctx, companyID)
	if err != nil {
		h.logr.Error("company lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "company not found"})
		return
	}

	areas, err := h.areas.ActiveAreasContaining(ctx, companyID, orb.Point{lng, lat})
	if err != nil {
		h.logr.Error("lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	svcs, err := h.services.ListServices(ctx, companyID)
	if err != nil {
		h.logr.Error("failed to list services for lookup", zap.Error(err))
	}
	byID := make(map[uuid.UUID]models.Service, len(svcs))
	for _, svc := range svcs {
		byID[svc.ID] = svc
	}
	features := make([]models.ServiceAreaFeature, 0, len(areas))
	for _, area := range areas {
		f, err := areaFeature(area, byID[area.ServiceID])
		if err != nil {
			continue
		}
		features = append(features, f)
	}
	writeJSON(w, http.StatusOK, models.ServiceAreasResponse{
		Type:     "FeatureCollection",
		Features: features,
		Count:    len(features),
	})
}

// writeAreaError maps gateway errors to responses. The ownership predicate
// reports the same generic message whether the row is missing or owned by
// someone else.
func (h *ServiceAreaHandler) writeAreaError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": action + ": service area not found"})
	case errors.Is(err, geometry.ErrNotPolygon),
		errors.Is(err, geometry.ErrInvalidGeometry),
		errors.Is(err, geometry.ErrExactlyOnePolygon),
		errors.Is(err, services.ErrServiceMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logr.Error(action, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": action})
	}
}

// areaFeature renders one area row as a GeoJSON feature with a style keyed
// off the active flag.
func areaFeature(area models.ServiceArea, svc models.Service) (models.ServiceAreaFeature, error) {
	var geom map[string]interface{}
	if err := json.Unmarshal([]byte(area.Geometry), &geom); err != nil {
		return models.ServiceAreaFeature{}, err
	}
	shape, err := geometry.AreaShape(area.ID.String(), area.Geometry, area.IsActive, nil)
	if err != nil {
		return models.ServiceAreaFeature{}, err
	}

	properties := map[string]interface{}{
		"id":         area.ID,
		"service_id": area.ServiceID,
		"is_active":  area.IsActive,
		"style":      shape.Properties["style"],
	}
	if svc.ID != uuid.Nil {
		properties["service_name"] = svc.Name
		properties["category"] = svc.Category
		properties["category_display"] = svc.Category.Display()
		properties["category_icon"] = svc.Category.Icon()
	}

	return models.ServiceAreaFeature{
		ID:         area.ID,
		Type:       "Feature",
		Geometry:   geom,
		Properties: properties,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
