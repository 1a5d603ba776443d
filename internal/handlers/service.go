package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"areas-bknd/internal/middleware"
	"areas-bknd/internal/models"
	"areas-bknd/internal/services"
)

type ServiceHandler struct {
	service *services.ServiceService
	logr    *zap.Logger
}

func NewServiceHandler(svc *services.ServiceService, logr *zap.Logger) *ServiceHandler {
	return &ServiceHandler{service: svc, logr: logr}
}

// GetServices returns the company's service catalog.
func (h *ServiceHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	svcs, err := h.service.ListServices(ctx, id.CompanyID)
	if err != nil {
		h.logr.Error("failed to list services", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve services"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"services": svcs,
		"count":    len(svcs),
	})
}

// GetCategories returns the fixed category enumeration for the picker.
func (h *ServiceHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	type categoryResp struct {
		Key     models.Category `json:"key"`
		Display string          `json:"display"`
		Icon    string          `json:"icon"`
	}
	cats := models.Categories()
	out := make([]categoryResp, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResp{Key: c, Display: c.Display(), Icon: c.Icon()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": out,
		"count":      len(out),
	})
}

// CreateService adds a service to the catalog.
func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req services.CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svc, err := h.service.CreateService(ctx, id.CompanyID, id.Email, req)
	if err != nil {
		h.logr.Warn("failed to create service", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// DeleteService removes a service (and its areas) under the owner scope.
func (h *ServiceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := middleware.IdentityFromContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	svcID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id parameter"})
		return
	}

	if err := h.service.DeleteService(ctx, svcID, id.Email); err != nil {
		if errors.Is(err, services.ErrServiceNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "error deleting service: service not found"})
			return
		}
		h.logr.Error("failed to delete service", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error deleting service"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
