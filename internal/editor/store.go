package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"areas-bknd/internal/geometry"
	"areas-bknd/internal/models"
)

// ErrReloadFailed marks an operation whose gateway call succeeded but whose
// follow-up cache refresh did not. The caller surfaces it as a notification;
// the cache stays at its pre-mutation state until the next successful load.
var ErrReloadFailed = errors.New("refreshing service areas failed")

// Store is the in-memory cache of one company's services and service areas.
// It is reconciled with the gateway by a full reload after every successful
// mutation, so the cache reflects exactly what the gateway persisted,
// including server-assigned timestamps. A failed reload keeps the previous
// cache intact (stale but available).
type Store struct {
	gw        Gateway
	companyID uuid.UUID
	email     string
	logr      *zap.Logger

	mu       sync.RWMutex
	services []models.Service
	areas    []models.ServiceArea
}

func NewStore(gw Gateway, companyID uuid.UUID, email string, logr *zap.Logger) *Store {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Store{gw: gw, companyID: companyID, email: email, logr: logr}
}

// Load fetches all services and service areas for the company and replaces
// the cache wholesale. On error the previous cache is left untouched.
func (s *Store) Load(ctx context.Context) error {
	services, err := s.gw.ListServices(ctx, s.companyID)
	if err != nil {
		return fmt.Errorf("error loading services: %w", err)
	}
	areas, err := s.gw.ListServiceAreas(ctx, s.companyID)
	if err != nil {
		return fmt.Errorf("error loading service areas: %w", err)
	}

	s.mu.Lock()
	s.services = services
	s.areas = areas
	s.mu.Unlock()
	return nil
}

func (s *Store) Services() []models.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Service, len(s.services))
	copy(out, s.services)
	return out
}

func (s *Store) Areas() []models.ServiceArea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ServiceArea, len(s.areas))
	copy(out, s.areas)
	return out
}

// Area looks up a cached service area by id.
func (s *Store) Area(id uuid.UUID) (models.ServiceArea, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.areas {
		if a.ID == id {
			return a, true
		}
	}
	return models.ServiceArea{}, false
}

// Service looks up a cached service by id.
func (s *Store) Service(id uuid.UUID) (models.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.services {
		if svc.ID == id {
			return svc, true
		}
	}
	return models.Service{}, false
}

// Create persists a new service area scoped to the session's email, then
// reloads. The geometry must decode as a single Polygon.
func (s *Store) Create(ctx context.Context, serviceID uuid.UUID, geom string, isActive bool) error {
	if _, err := geometry.DecodePolygon(geom); err != nil {
		return err
	}
	_, err := s.gw.CreateServiceArea(ctx, models.CreateServiceAreaParams{
		CompanyID:  s.companyID,
		ServiceID:  serviceID,
		Geometry:   geom,
		IsActive:   isActive,
		OwnerEmail: s.email,
	})
	if err != nil {
		return fmt.Errorf("error creating service area: %w", err)
	}
	return s.reload(ctx)
}

// reload runs the post-mutation refresh. The mutation already succeeded, so a
// refresh failure keeps the stale cache and reports ErrReloadFailed instead
// of failing the whole operation.
func (s *Store) reload(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		s.logr.Warn("cache reload failed, keeping stale data", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrReloadFailed, err)
	}
	return nil
}

// Update mutates an existing area under the (id, email) scope, then reloads.
func (s *Store) Update(ctx context.Context, areaID, serviceID uuid.UUID, geom string, isActive bool) error {
	if _, err := geometry.DecodePolygon(geom); err != nil {
		return err
	}
	_, err := s.gw.UpdateServiceArea(ctx, models.UpdateServiceAreaParams{
		ID:         areaID,
		ServiceID:  serviceID,
		Geometry:   geom,
		IsActive:   isActive,
		OwnerEmail: s.email,
	})
	if err != nil {
		return fmt.Errorf("error updating service area: %w", err)
	}
	return s.reload(ctx)
}

// Delete removes an area under the (id, email) scope, then reloads. Deletion
// is permanent; there is no soft delete.
func (s *Store) Delete(ctx context.Context, areaID uuid.UUID) error {
	if err := s.gw.DeleteServiceArea(ctx, areaID, s.email); err != nil {
		return fmt.Errorf("error deleting service area: %w", err)
	}
	return s.reload(ctx)
}
