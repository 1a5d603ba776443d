package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/uptrace/bun"

	"areas-bknd/internal/geometry"
	"areas-bknd/internal/models"
)

// ErrNotFound covers both a missing row and an ownership mismatch on scoped
// mutations, so a caller cannot tell whether an area exists for another
// owner.
var ErrNotFound = errors.New("service area not found")

// ErrServiceMismatch flags an area referencing a service outside its company.
var ErrServiceMismatch = errors.New("service does not belong to company")

// ServiceAreaService is the persistence gateway for service areas. Update
// and delete are scoped by (id, owner email) in the WHERE clause; ownership
// is never checked client-side.
type ServiceAreaService struct {
	db *bun.DB
}

func NewServiceAreaService(db *bun.DB) *ServiceAreaService {
	return &ServiceAreaService{db: db}
}

// ListServiceAreas returns all service areas for one company, newest first.
func (s *ServiceAreaService) ListServiceAreas(ctx context.Context, companyID uuid.UUID) ([]models.ServiceArea, error) {
	areas := make([]models.ServiceArea, 0)
	err := s.db.NewSelect().
		Model(&areas).
		Where("company_id = ?", companyID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return areas, nil
}

// GetServiceArea returns one area by id within a company.
func (s *ServiceAreaService) GetServiceArea(ctx context.Context, companyID, id uuid.UUID) (*models.ServiceArea, error) {
	var area models.ServiceArea
	err := s.db.NewSelect().
		Model(&area).
		Where("sa.id = ? AND sa.company_id = ?", id, companyID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &area, nil
}

// CreateServiceArea inserts a new area. The owner email is stamped from the
// caller's verified session; the geometry must be a single GeoJSON Polygon
// and the service must belong to the same company.
func (s *ServiceAreaService) CreateServiceArea(ctx context.Context, p models.CreateServiceAreaParams) (*models.ServiceArea, error) {
	if _, err := geometry.DecodePolygon(p.Geometry); err != nil {
		return nil, err
	}
	if err := s.checkServiceCompany(ctx, p.ServiceID, p.CompanyID); err != nil {
		return nil, err
	}

	area := &models.ServiceArea{
		CompanyID:  p.CompanyID,
		ServiceID:  p.ServiceID,
		Geometry:   p.Geometry,
		IsActive:   p.IsActive,
		OwnerEmail: p.OwnerEmail,
	}
	_, err := s.db.NewInsert().
		Model(area).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return area, nil
}

// UpdateServiceArea mutates geometry, service and active flag. The update is
// refused unless a row matches both id and owner email.
func (s *ServiceAreaService) UpdateServiceArea(ctx context.Context, p models.UpdateServiceAreaParams) (*models.ServiceArea, error) {
	if _, err := geometry.DecodePolygon(p.Geometry); err != nil {
		return nil, err
	}

	var current models.ServiceArea
	err := s.db.NewSelect().
		Model(&current).
		Where("sa.id = ? AND sa.owner_email = ?", p.ID, p.OwnerEmail).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.checkServiceCompany(ctx, p.ServiceID, current.CompanyID); err != nil {
		return nil, err
	}

	res, err := s.db.NewUpdate().
		Model((*models.ServiceArea)(nil)).
		Set("geometry = ?", p.Geometry).
		Set("service_id = ?", p.ServiceID).
		Set("is_active = ?", p.IsActive).
		Set("updated_at = current_timestamp").
		Where("id = ? AND owner_email = ?", p.ID, p.OwnerEmail).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, ErrNotFound
	}
	return s.GetServiceArea(ctx, current.CompanyID, p.ID)
}

// DeleteServiceArea permanently removes an area under the same (id, owner
// email) predicate. There is no soft delete.
func (s *ServiceAreaService) DeleteServiceArea(ctx context.Context, id uuid.UUID, ownerEmail string) error {
	res, err := s.db.NewDelete().
		Model((*models.ServiceArea)(nil)).
		Where("id = ? AND owner_email = ?", id, ownerEmail).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveAreasContaining answers the consumer lookup: all active areas of a
// company whose polygon contains the point.
func (s *ServiceAreaService) ActiveAreasContaining(ctx context.Context, companyID uuid.UUID, pt orb.Point) ([]models.ServiceArea, error) {
	areas, err := s.ListServiceAreas(ctx, companyID)
	if err != nil {
		return nil, err
	}
	matches := make([]models.ServiceArea, 0)
	for _, area := range areas {
		if !area.IsActive {
			continue
		}
		poly, err := geometry.DecodePolygon(area.Geometry)
		if err != nil {
			continue
		}
		if geometry.PolygonContains(poly, pt) {
			matches = append(matches, area)
		}
	}
	return matches, nil
}

// CompanyExists reports whether a tenant exists; the public lookup refuses
// to answer for unknown companies.
func (s *ServiceAreaService) CompanyExists(ctx context.Context, companyID uuid.UUID) (bool, error) {
	return s.db.NewSelect().
		Model((*models.Company)(nil)).
		Where("c.id = ?", companyID).
		Exists(ctx)
}

func (s *ServiceAreaService) checkServiceCompany(ctx context.Context, serviceID, companyID uuid.UUID) error {
	exists, err := s.db.NewSelect().
		Model((*models.Service)(nil)).
		Where("svc.id = ? AND svc.company_id = ?", serviceID, companyID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: service %s", ErrServiceMismatch, serviceID)
	}
	return nil
}
