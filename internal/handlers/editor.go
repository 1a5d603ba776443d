package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"areas-bknd/internal/editor"
	"areas-bknd/internal/geometry"
	"areas-bknd/internal/middleware"
	"areas-bknd/internal/services"
)

// EditorHandler drives the per-session editor state machine over HTTP. Every
// action responds with the full editor snapshot so the client re-renders
// from server state.
type EditorHandler struct {
	manager *editor.Manager
	logr    *zap.Logger
}

func NewEditorHandler(manager *editor.Manager, logr *zap.Logger) *EditorHandler {
	return &EditorHandler{manager: manager, logr: logr}
}

// staleCacheWarning is the notification shown when a gateway load failed and
// the snapshot renders from the previous cache.
const staleCacheWarning = "service areas could not be refreshed; shown data may be stale"

// session resolves the caller's editor. A failed initial load still yields a
// session; the returned warning is surfaced alongside the snapshot.
func (h *EditorHandler) session(w http.ResponseWriter, r *http.Request) (*editor.Editor, string, bool) {
	id, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return nil, "", false
	}
	ed, err := h.manager.Session(r.Context(), id)
	if err != nil && ed == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return nil, "", false
	}
	if err != nil {
		h.logr.Warn("editor session loaded with stale cache", zap.Error(err))
		return ed, staleCacheWarning, true
	}
	return ed, "", true
}

// writeSnapshot responds with the snapshot; a non-empty warning wraps it in
// an envelope so the client can raise a notification without treating the
// action as failed.
func (h *EditorHandler) writeSnapshot(w http.ResponseWriter, ed *editor.Editor, warning string) {
	if warning != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"warning":  warning,
			"snapshot": ed.Snapshot(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ed.Snapshot())
}

// writeEditorError maps editor/gateway failures. Validation problems are 400
// and never transition state; gateway misses stay generic.
func (h *EditorHandler) writeEditorError(w http.ResponseWriter, ed *editor.Editor, err error) {
	type errResp struct {
		Error    string          `json:"error"`
		Snapshot editor.Snapshot `json:"snapshot"`
	}
	resp := errResp{Error: err.Error(), Snapshot: ed.Snapshot()}

	switch {
	case errors.Is(err, editor.ErrMissingFields),
		errors.Is(err, editor.ErrNoSelection),
		errors.Is(err, editor.ErrConfirmationRequired),
		errors.Is(err, editor.ErrUnknownArea),
		errors.Is(err, editor.ErrUnknownService),
		errors.Is(err, geometry.ErrExactlyOnePolygon),
		errors.Is(err, geometry.ErrNotPolygon),
		errors.Is(err, geometry.ErrInvalidGeometry):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, editor.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, editor.ErrBusy):
		writeJSON(w, http.StatusTooManyRequests, resp)
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	default:
		h.logr.Error("editor action failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// GetState returns the current snapshot without side effects.
func (h *EditorHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, ed, warn)
}

// StartDrawing enters Drawing mode.
func (h *EditorHandler) StartDrawing(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := ed.StartDrawing(); err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

// Select marks a persisted area as selected (map shape click).
func (h *EditorHandler) Select(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id parameter"})
		return
	}
	if err := ed.Select(areaID); err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

// ClearSelection models a click on the map background.
func (h *EditorHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	ed.ClearSelection()
	h.writeSnapshot(w, ed, warn)
}

// BeginEdit enters Editing mode on the selected area and returns the bounds
// to focus the view on.
func (h *EditorHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	bound, err := ed.BeginEdit()
	if err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	payload := map[string]interface{}{
		"bounds": map[string][]float64{
			"min": {bound.Min[0], bound.Min[1]},
			"max": {bound.Max[0], bound.Max[1]},
		},
		"snapshot": ed.Snapshot(),
	}
	if warn != "" {
		payload["warning"] = warn
	}
	writeJSON(w, http.StatusOK, payload)
}

type shapesReq struct {
	Shapes []json.RawMessage `json:"shapes"`
}

// SetShapes replaces the transient shape layer after a draw/edit event and
// recomputes the candidate geometry.
func (h *EditorHandler) SetShapes(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	var req shapesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	shapes := make([]geometry.Shape, 0, len(req.Shapes))
	for _, raw := range req.Shapes {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			h.writeEditorError(w, ed, geometry.ErrInvalidGeometry)
			return
		}
		shapes = append(shapes, f)
	}

	if err := ed.SetShapes(shapes); err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

type serviceReq struct {
	ServiceID uuid.UUID `json:"service_id"`
}

// SetService picks the service for the in-progress area.
func (h *EditorHandler) SetService(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	var req serviceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := ed.SetService(req.ServiceID); err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

type activeReq struct {
	IsActive bool `json:"is_active"`
}

// SetActive toggles the in-progress area's active flag.
func (h *EditorHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	var req activeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := ed.SetActive(req.IsActive); err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

// Save confirms the in-progress shape (create in Drawing, update in
// Editing). A save that persisted but could not refresh the cache is still a
// success, delivered with a warning.
func (h *EditorHandler) Save(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	err := ed.Save(r.Context())
	if errors.Is(err, editor.ErrReloadFailed) {
		h.writeSnapshot(w, ed, staleCacheWarning)
		return
	}
	if err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

type deleteReq struct {
	Confirmed bool `json:"confirmed"`
}

// Delete permanently removes the selected area after confirmation. An absent
// body means unconfirmed; a malformed one is rejected.
func (h *EditorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	var req deleteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := ed.Delete(r.Context(), req.Confirmed)
	if errors.Is(err, editor.ErrReloadFailed) {
		h.writeSnapshot(w, ed, staleCacheWarning)
		return
	}
	if err != nil {
		h.writeEditorError(w, ed, err)
		return
	}
	h.writeSnapshot(w, ed, warn)
}

// Cancel abandons the in-progress shape and returns to Idle.
func (h *EditorHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ed, warn, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := ed.Cancel(r.Context()); err != nil {
		h.writeSnapshot(w, ed, staleCacheWarning)
		return
	}
	h.writeSnapshot(w, ed, warn)
}
