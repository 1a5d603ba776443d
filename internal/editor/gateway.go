package editor

import (
	"context"

	"github.com/google/uuid"

	"areas-bknd/internal/models"
)

// Gateway is the persistence collaborator the editor core talks to. Every
// mutating call carries the caller's verified email; the implementation
// enforces the (id, owner email) predicate on update and delete.
type Gateway interface {
	ListServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error)
	ListServiceAreas(ctx context.Context, companyID uuid.UUID) ([]models.ServiceArea, error)
	CreateServiceArea(ctx context.Context, p models.CreateServiceAreaParams) (*models.ServiceArea, error)
	UpdateServiceArea(ctx context.Context, p models.UpdateServiceAreaParams) (*models.ServiceArea, error)
	DeleteServiceArea(ctx context.Context, id uuid.UUID, ownerEmail string) error
}

// Identity is the session identity resolved by the auth layer. Email is the
// verified address used as the authorization scope; it never comes from a
// request body.
type Identity struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Email     string
}
