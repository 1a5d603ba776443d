// Package editor holds the service-area editor core: the mode state machine
// governing drawing vs. editing vs. viewing, the transient shape layer with
// its single-polygon rule, the area cache and the current selection. One
// Editor exists per authenticated session; it talks to persistence only via
// the Gateway interface.
package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"areas-bknd/internal/geometry"
)

var (
	// ErrMissingFields blocks Save when the candidate geometry or the
	// selected service is missing.
	ErrMissingFields = errors.New("missing required fields")

	// ErrBusy rejects a Save/Delete while a previous one is still in flight.
	ErrBusy = errors.New("a save or delete is already in progress")

	// ErrNoSelection is returned for edit/delete actions without a selected
	// service area.
	ErrNoSelection = errors.New("no service area selected")

	// ErrInvalidTransition is returned when an action is not allowed in the
	// current mode.
	ErrInvalidTransition = errors.New("action not allowed in current mode")

	// ErrConfirmationRequired guards permanent deletion.
	ErrConfirmationRequired = errors.New("delete requires confirmation")

	// ErrUnknownArea / ErrUnknownService flag references to ids not present
	// in the company's cache.
	ErrUnknownArea    = errors.New("unknown service area")
	ErrUnknownService = errors.New("unknown service")
)

// Editor is the per-session editor core. All fields are guarded by mu; the
// busy latch models the disabled Save/Delete control while a gateway call is
// in flight, so a duplicate submission is rejected rather than queued.
type Editor struct {
	store *Store
	logr  *zap.Logger

	mu        sync.Mutex
	mode      Mode
	busy      bool
	candidate orb.Polygon // current transient-layer geometry, nil if invalid/empty
	serviceID uuid.UUID   // selected service, uuid.Nil if none
	isActive  bool
	selection uuid.UUID // selected persisted area, uuid.Nil if none
}

func New(store *Store, logr *zap.Logger) *Editor {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Editor{store: store, logr: logr, mode: Idle(), isActive: true}
}

// Store exposes the editor's area cache.
func (e *Editor) Store() *Store { return e.store }

// Mode returns the current interaction mode.
func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Selection returns the currently selected persisted area, uuid.Nil if none.
func (e *Editor) Selection() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// StartDrawing transitions Idle -> Drawing: clears the transient layer and
// any selection, resets the selected service and defaults the active flag
// to true.
func (e *Editor) StartDrawing() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mode.IsIdle() {
		return ErrInvalidTransition
	}
	e.mode = Drawing()
	e.candidate = nil
	e.serviceID = uuid.Nil
	e.isActive = true
	e.selection = uuid.Nil
	return nil
}

// Select marks a persisted area as selected for the detail view. Selecting
// while drawing or editing is a no-op; the mode does not change.
func (e *Editor) Select(areaID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mode.IsIdle() {
		return nil
	}
	if _, ok := e.store.Area(areaID); !ok {
		return ErrUnknownArea
	}
	e.selection = areaID
	return nil
}

// ClearSelection models a click on the map background.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode.IsIdle() {
		e.selection = uuid.Nil
	}
}

// BeginEdit transitions Idle -> Editing on the selected area: the transient
// layer is seeded with the area's persisted geometry, its service and active
// flag are preselected, and the returned bound focuses the view on the area.
func (e *Editor) BeginEdit() (orb.Bound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mode.IsIdle() {
		return orb.Bound{}, ErrInvalidTransition
	}
	if e.selection == uuid.Nil {
		return orb.Bound{}, ErrNoSelection
	}
	area, ok := e.store.Area(e.selection)
	if !ok {
		return orb.Bound{}, ErrUnknownArea
	}
	poly, err := geometry.DecodePolygon(area.Geometry)
	if err != nil {
		return orb.Bound{}, err
	}
	e.mode = Editing(area.ID)
	e.candidate = poly
	e.serviceID = area.ServiceID
	e.isActive = area.IsActive
	return geometry.PolygonBound(poly), nil
}

// SetShapes recomputes the candidate geometry from the transient shape layer
// after a draw/edit event. A layer holding zero or more than one shape, or a
// non-polygon shape, invalidates the candidate and surfaces the validation
// error; the mode never changes.
func (e *Editor) SetShapes(shapes []geometry.Shape) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode.IsIdle() {
		return ErrInvalidTransition
	}
	poly, err := geometry.CandidateFromShapes(shapes)
	if err != nil {
		e.candidate = nil
		return err
	}
	e.candidate = poly
	return nil
}

// SetService picks the service the in-progress area belongs to. The service
// must exist in the company's cache.
func (e *Editor) SetService(serviceID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode.IsIdle() {
		return ErrInvalidTransition
	}
	if _, ok := e.store.Service(serviceID); !ok {
		return ErrUnknownService
	}
	e.serviceID = serviceID
	return nil
}

// SetActive toggles the in-progress area's active flag.
func (e *Editor) SetActive(active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode.IsIdle() {
		return ErrInvalidTransition
	}
	e.isActive = active
	return nil
}

// Save confirms the in-progress shape. In Drawing it requires a candidate
// geometry and a selected service and creates a new area; in Editing it
// updates the area under edit with the latest geometry, service and active
// flag. Validation failures block the gateway call and leave the mode
// unchanged; a failed gateway call leaves the candidate intact for retry. A
// save that persisted but could not refresh the cache still completes and
// reports ErrReloadFailed so the stale view is not silent.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}

	mode := e.mode
	if mode.IsIdle() {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	if e.candidate == nil {
		e.mu.Unlock()
		return ErrMissingFields
	}
	if mode.IsDrawing() && e.serviceID == uuid.Nil {
		e.mu.Unlock()
		return ErrMissingFields
	}

	geom, err := geometry.EncodePolygon(e.candidate)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	serviceID, isActive := e.serviceID, e.isActive
	e.busy = true
	e.mu.Unlock()

	if areaID, editing := mode.EditingArea(); editing {
		err = e.store.Update(ctx, areaID, serviceID, geom, isActive)
	} else {
		err = e.store.Create(ctx, serviceID, geom, isActive)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil && !errors.Is(err, ErrReloadFailed) {
		return err
	}
	e.reset()
	return err
}

// Delete permanently removes the selected area (or, while editing, the area
// under edit) and returns to Idle. It requires an explicit confirmation.
// Like Save, a delete that persisted but could not refresh the cache
// completes and reports ErrReloadFailed.
func (e *Editor) Delete(ctx context.Context, confirmed bool) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.mode.IsDrawing() {
		e.mu.Unlock()
		return ErrInvalidTransition
	}

	areaID, editing := e.mode.EditingArea()
	if !editing {
		areaID = e.selection
	}
	if areaID == uuid.Nil {
		e.mu.Unlock()
		return ErrNoSelection
	}
	if !confirmed {
		e.mu.Unlock()
		return ErrConfirmationRequired
	}
	e.busy = true
	e.mu.Unlock()

	err := e.store.Delete(ctx, areaID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil && !errors.Is(err, ErrReloadFailed) {
		return err
	}
	e.reset()
	return err
}

// Cancel abandons the in-progress shape, returns to Idle and reconciles the
// cache with the gateway. A failed reconcile is reported as ErrReloadFailed;
// the mode still resets.
func (e *Editor) Cancel(ctx context.Context) error {
	e.mu.Lock()
	if e.mode.IsIdle() {
		e.mu.Unlock()
		return nil
	}
	e.reset()
	e.mu.Unlock()

	return e.store.reload(ctx)
}

// reset clears the transient layer and selection and returns to Idle.
// Callers hold e.mu.
func (e *Editor) reset() {
	e.mode = Idle()
	e.candidate = nil
	e.serviceID = uuid.Nil
	e.isActive = true
	e.selection = uuid.Nil
}
