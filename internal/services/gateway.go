package services

import (
	"context"

	"github.com/google/uuid"

	"areas-bknd/internal/models"
)

// Gateway bundles the catalog and area services into the single persistence
// collaborator the editor core consumes (editor.Gateway).
type Gateway struct {
	areas    *ServiceAreaService
	services *ServiceService
}

func NewGateway(areas *ServiceAreaService, services *ServiceService) *Gateway {
	return &Gateway{areas: areas, services: services}
}

func (g *Gateway) ListServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error) {
	return g.services.ListServices(ctx, companyID)
}

func (g *Gateway) ListServiceAreas(ctx context.Context, companyID uuid.UUID) ([]models.ServiceArea, error) {
	return g.areas.ListServiceAreas(ctx, companyID)
}

func (g *Gateway) CreateServiceArea(ctx context.Context, p models.CreateServiceAreaParams) (*models.ServiceArea, error) {
	return g.areas.CreateServiceArea(ctx, p)
}

func (g *Gateway) UpdateServiceArea(ctx context.Context, p models.UpdateServiceAreaParams) (*models.ServiceArea, error) {
	return g.areas.UpdateServiceArea(ctx, p)
}

func (g *Gateway) DeleteServiceArea(ctx context.Context, id uuid.UUID, ownerEmail string) error {
	return g.areas.DeleteServiceArea(ctx, id, ownerEmail)
}
