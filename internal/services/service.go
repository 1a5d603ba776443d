package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"areas-bknd/internal/models"
)

// ErrServiceNotFound mirrors ErrNotFound for the services catalog.
var ErrServiceNotFound = errors.New("service not found")

// CreateServiceRequest is the request body for creating a service.
type CreateServiceRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
}

// ServiceService manages the company's service catalog, read by the editor
// to populate the service picker.
type ServiceService struct {
	db *bun.DB
}

func NewServiceService(db *bun.DB) *ServiceService {
	return &ServiceService{db: db}
}

// ListServices returns all services for one company in name order.
func (s *ServiceService) ListServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error) {
	services := make([]models.Service, 0)
	err := s.db.NewSelect().
		Model(&services).
		Where("company_id = ?", companyID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return services, nil
}

// CreateService adds a service to the catalog. The category must be one of
// the fixed enumeration; the owner email comes from the verified session.
func (s *ServiceService) CreateService(ctx context.Context, companyID uuid.UUID, ownerEmail string, req CreateServiceRequest) (*models.Service, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("unknown category %q", req.Category)
	}

	svc := &models.Service{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		OwnerEmail:  ownerEmail,
	}
	_, err := s.db.NewInsert().
		Model(svc).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// DeleteService removes a service and its areas under the (id, owner email)
// predicate, same ownership rule as service areas.
func (s *ServiceService) DeleteService(ctx context.Context, id uuid.UUID, ownerEmail string) error {
	// areas referencing the service go first
	_, err := s.db.NewDelete().
		Model((*models.ServiceArea)(nil)).
		Where("service_id = ? AND owner_email = ?", id, ownerEmail).
		Exec(ctx)
	if err != nil {
		return err
	}

	res, err := s.db.NewDelete().
		Model((*models.Service)(nil)).
		Where("id = ? AND owner_email = ?", id, ownerEmail).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrServiceNotFound
	}
	return nil
}
