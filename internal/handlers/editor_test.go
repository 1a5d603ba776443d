package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"areas-bknd/internal/editor"
	"areas-bknd/internal/handlers"
	"areas-bknd/internal/middleware"
	"areas-bknd/internal/models"
)

// fakeGateway mirrors the gateway contract in memory, (id, owner email)
// predicate included.
type fakeGateway struct {
	services    []models.Service
	areas       []models.ServiceArea
	createCalls int
	failList    error
}

func (g *fakeGateway) ListServices(_ context.Context, _ uuid.UUID) ([]models.Service, error) {
	if g.failList != nil {
		return nil, g.failList
	}
	out := make([]models.Service, len(g.services))
	copy(out, g.services)
	return out, nil
}

func (g *fakeGateway) ListServiceAreas(_ context.Context, _ uuid.UUID) ([]models.ServiceArea, error) {
	if g.failList != nil {
		return nil, g.failList
	}
	out := make([]models.ServiceArea, len(g.areas))
	copy(out, g.areas)
	return out, nil
}

func (g *fakeGateway) CreateServiceArea(_ context.Context, p models.CreateServiceAreaParams) (*models.ServiceArea, error) {
	g.createCalls++
	area := models.ServiceArea{
		ID:         uuid.New(),
		CompanyID:  p.CompanyID,
		ServiceID:  p.ServiceID,
		Geometry:   p.Geometry,
		IsActive:   p.IsActive,
		OwnerEmail: p.OwnerEmail,
	}
	g.areas = append(g.areas, area)
	return &area, nil
}

func (g *fakeGateway) UpdateServiceArea(_ context.Context, p models.UpdateServiceAreaParams) (*models.ServiceArea, error) {
	for i, a := range g.areas {
		if a.ID == p.ID && a.OwnerEmail == p.OwnerEmail {
			g.areas[i].Geometry = p.Geometry
			g.areas[i].ServiceID = p.ServiceID
			g.areas[i].IsActive = p.IsActive
			return &g.areas[i], nil
		}
	}
	return nil, fmt.Errorf("service area not found")
}

func (g *fakeGateway) DeleteServiceArea(_ context.Context, id uuid.UUID, ownerEmail string) error {
	for i, a := range g.areas {
		if a.ID == id && a.OwnerEmail == ownerEmail {
			g.areas = append(g.areas[:i], g.areas[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("service area not found")
}

type testIdentity struct {
	userID    uuid.UUID
	companyID uuid.UUID
	email     string
}

// identityInjector plays the role of the JWT middleware in tests.
func identityInjector(id testIdentity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.ContextUserIDKey, id.userID.String())
			ctx = context.WithValue(ctx, middleware.ContextEmailKey, id.email)
			ctx = context.WithValue(ctx, middleware.ContextCompanyIDKey, id.companyID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newEditorServer(t *testing.T, gw *fakeGateway, id testIdentity) http.Handler {
	t.Helper()
	mgr := editor.NewManager(gw, zaptest.NewLogger(t))
	h := handlers.NewEditorHandler(mgr, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Use(identityInjector(id))
	r.Get("/editor/state", h.GetState)
	r.Post("/editor/draw", h.StartDrawing)
	r.Post("/editor/select/{id}", h.Select)
	r.Post("/editor/clear-selection", h.ClearSelection)
	r.Post("/editor/edit", h.BeginEdit)
	r.Post("/editor/shapes", h.SetShapes)
	r.Post("/editor/service", h.SetService)
	r.Post("/editor/active", h.SetActive)
	r.Post("/editor/save", h.Save)
	r.Post("/editor/delete", h.Delete)
	r.Post("/editor/cancel", h.Cancel)
	return r
}

func do(t *testing.T, srv http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func squareFeatureJSON() json.RawMessage {
	return json.RawMessage(`{
		"type": "Feature",
		"geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]},
		"properties": {}
	}`)
}

func TestEditorFlowDrawAndSave(t *testing.T) {
	gw := &fakeGateway{}
	svc := models.Service{ID: uuid.New(), Name: "Lawn care", Category: models.CategoryGardening, OwnerEmail: "owner@example.com"}
	gw.services = append(gw.services, svc)
	id := testIdentity{userID: uuid.New(), companyID: uuid.New(), email: "owner@example.com"}
	srv := newEditorServer(t, gw, id)

	rec := do(t, srv, http.MethodPost, "/editor/draw", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap editor.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "drawing", snap.Mode)

	rec = do(t, srv, http.MethodPost, "/editor/shapes", map[string]interface{}{
		"shapes": []json.RawMessage{squareFeatureJSON()},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/editor/service", map[string]string{"service_id": svc.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/editor/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "idle", snap.Mode)
	assert.Len(t, snap.Shapes, 1)
	assert.Equal(t, 1, gw.createCalls)
}

func TestEditorSaveWithoutServiceFails(t *testing.T) {
	gw := &fakeGateway{}
	id := testIdentity{userID: uuid.New(), companyID: uuid.New(), email: "owner@example.com"}
	srv := newEditorServer(t, gw, id)

	rec := do(t, srv, http.MethodPost, "/editor/draw", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/editor/shapes", map[string]interface{}{
		"shapes": []json.RawMessage{squareFeatureJSON()},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/editor/save", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required fields")
	assert.Zero(t, gw.createCalls)
}

func TestEditorTwoShapesRejected(t *testing.T) {
	gw := &fakeGateway{}
	id := testIdentity{userID: uuid.New(), companyID: uuid.New(), email: "owner@example.com"}
	srv := newEditorServer(t, gw, id)

	rec := do(t, srv, http.MethodPost, "/editor/draw", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/editor/shapes", map[string]interface{}{
		"shapes": []json.RawMessage{squareFeatureJSON(), squareFeatureJSON()},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exactly one polygon required")
}

func TestEditorRejectsAnonymousRequest(t *testing.T) {
	gw := &fakeGateway{}
	mgr := editor.NewManager(gw, zaptest.NewLogger(t))
	h := handlers.NewEditorHandler(mgr, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Get("/editor/state", h.GetState)

	req := httptest.NewRequest(http.MethodGet, "/editor/state", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEditorSaveWarnsWhenReloadFails(t *testing.T) {
	gw := &fakeGateway{}
	svc := models.Service{ID: uuid.New(), Name: "Lawn care", Category: models.CategoryGardening, OwnerEmail: "owner@example.com"}
	gw.services = append(gw.services, svc)
	id := testIdentity{userID: uuid.New(), companyID: uuid.New(), email: "owner@example.com"}
	srv := newEditorServer(t, gw, id)

	rec := do(t, srv, http.MethodPost, "/editor/draw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/editor/shapes", map[string]interface{}{
		"shapes": []json.RawMessage{squareFeatureJSON()},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/editor/service", map[string]string{"service_id": svc.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	gw.failList = fmt.Errorf("connection refused")
	rec = do(t, srv, http.MethodPost, "/editor/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Warning  string          `json:"warning"`
		Snapshot editor.Snapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Warning, "stale")
	assert.Equal(t, "idle", resp.Snapshot.Mode)
	assert.Equal(t, 1, gw.createCalls, "the row itself is persisted")
}

func TestEditorDeleteMalformedBody(t *testing.T) {
	gw := &fakeGateway{}
	svc := models.Service{ID: uuid.New(), Name: "Lawn care", Category: models.CategoryGardening}
	gw.services = append(gw.services, svc)
	area := models.ServiceArea{
		ID:         uuid.New(),
		ServiceID:  svc.ID,
		Geometry:   `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`,
		IsActive:   true,
		OwnerEmail: "owner@example.com",
	}
	gw.areas = append(gw.areas, area)
	id := testIdentity{userID: uuid.New(), companyID: uuid.New(), email: "owner@example.com"}
	srv := newEditorServer(t, gw, id)

	rec := do(t, srv, http.MethodPost, "/editor/select/"+area.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/editor/delete", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
	assert.Len(t, gw.areas, 1)

	// an empty body counts as unconfirmed, not malformed
	req = httptest.NewRequest(http.MethodPost, "/editor/delete", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "confirmation")
	assert.Len(t, gw.areas, 1)
}

func TestEditorSelectAndDelete(t *testing.T) {
	gw := &fakeGateway{}
	svc := models.Service{ID: uuid.New(), Name: "Lawn care", Category: models.CategoryGardening}
	gw.services = append(gw.services, svc)
	area := models.ServiceArea{
		ID:         uuid.New(),
		ServiceID:  svc.ID,
		Geometry:   `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`,
		IsActive:   true,
		OwnerEmail: "owner@example.com",
	}
	gw.areas = append(gw.areas, area)
	id := testIdentity{userID: uuid.New(), companyID: uuid.New(), email: "owner@example.com"}
	srv := newEditorServer(t, gw, id)

	rec := do(t, srv, http.MethodPost, "/editor/select/"+area.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap editor.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.SelectedArea)
	assert.Equal(t, area.ID, *snap.SelectedArea)
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "Lawn care", snap.Detail.ServiceName)

	// unconfirmed delete is refused
	rec = do(t, srv, http.MethodPost, "/editor/delete", map[string]bool{"confirmed": false})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, gw.areas, 1)

	rec = do(t, srv, http.MethodPost, "/editor/delete", map[string]bool{"confirmed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gw.areas)
}
