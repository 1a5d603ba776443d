package editor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"areas-bknd/internal/editor"
	"areas-bknd/internal/geometry"
)

func TestLoadFailureKeepsPreviousCache(t *testing.T) {
	gw := &fakeGateway{}
	svc := seedService(gw)
	seedArea(t, gw, svc, true, ownerEmail)

	store := editor.NewStore(gw, svc.CompanyID, ownerEmail, zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))
	require.Len(t, store.Areas(), 1)
	require.Len(t, store.Services(), 1)

	gw.failList = errors.New("connection refused")
	err := store.Load(context.Background())
	require.Error(t, err)

	// stale but available
	assert.Len(t, store.Areas(), 1)
	assert.Len(t, store.Services(), 1)
}

func TestCreateValidatesGeometryBeforeGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := seedService(gw)
	store := editor.NewStore(gw, svc.CompanyID, ownerEmail, zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))

	err := store.Create(context.Background(), svc.ID, `{"type":"Point","coordinates":[0,0]}`, true)
	assert.ErrorIs(t, err, geometry.ErrNotPolygon)
	assert.Zero(t, gw.createCalls)

	err = store.Create(context.Background(), svc.ID, "not json", true)
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
	assert.Zero(t, gw.createCalls)
}

func TestUpdateWrongOwnerLeavesCacheUnchanged(t *testing.T) {
	gw := &fakeGateway{}
	svc := seedService(gw)
	area := seedArea(t, gw, svc, false, ownerEmail)

	store := editor.NewStore(gw, svc.CompanyID, "attacker@example.com", zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))

	err := store.Update(context.Background(), area.ID, svc.ID, area.Geometry, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error updating service area")

	areas := store.Areas()
	require.Len(t, areas, 1)
	assert.False(t, areas[0].IsActive, "cached row must be unchanged")
}

func TestMutationReloadFailureIsReported(t *testing.T) {
	gw := &fakeGateway{}
	svc := seedService(gw)
	store := editor.NewStore(gw, svc.CompanyID, ownerEmail, zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))

	geom := mustEncode(t, squareRing())
	gw.failList = errors.New("connection refused")

	err := store.Create(context.Background(), svc.ID, geom, true)
	require.ErrorIs(t, err, editor.ErrReloadFailed)
	assert.Equal(t, 1, gw.createCalls, "the row itself is persisted")
	assert.Empty(t, store.Areas(), "cache stays at its pre-mutation state")

	gw.failList = nil
	require.NoError(t, store.Load(context.Background()))
	areas := store.Areas()
	require.Len(t, areas, 1)

	gw.failList = errors.New("connection refused")
	err = store.Delete(context.Background(), areas[0].ID)
	require.ErrorIs(t, err, editor.ErrReloadFailed)
	assert.Empty(t, gw.areas, "the row itself is deleted")
	assert.Len(t, store.Areas(), 1, "stale row stays visible until the next successful load")
}

func TestMutationsTriggerSingleReload(t *testing.T) {
	gw := &fakeGateway{}
	svc := seedService(gw)
	store := editor.NewStore(gw, svc.CompanyID, ownerEmail, zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))

	geom, err := geometry.EncodePolygon(squareRing())
	require.NoError(t, err)

	before := gw.listAreaCalls
	require.NoError(t, store.Create(context.Background(), svc.ID, geom, true))
	assert.Equal(t, before+1, gw.listAreaCalls)

	areas := store.Areas()
	require.Len(t, areas, 1)

	before = gw.listAreaCalls
	require.NoError(t, store.Delete(context.Background(), areas[0].ID))
	assert.Equal(t, before+1, gw.listAreaCalls)
	assert.Empty(t, store.Areas())
}

func TestStoreLookups(t *testing.T) {
	gw := &fakeGateway{}
	svc := seedService(gw)
	area := seedArea(t, gw, svc, true, ownerEmail)
	store := editor.NewStore(gw, svc.CompanyID, ownerEmail, zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))

	got, ok := store.Area(area.ID)
	require.True(t, ok)
	assert.Equal(t, area.ID, got.ID)

	_, ok = store.Area(uuid.New())
	assert.False(t, ok)

	gotSvc, ok := store.Service(svc.ID)
	require.True(t, ok)
	assert.Equal(t, svc.Name, gotSvc.Name)
}
