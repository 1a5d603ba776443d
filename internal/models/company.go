package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Company is the tenant boundary: every service and service area belongs to
// exactly one company, and a session only ever operates on one company's data.
type Company struct {
	bun.BaseModel `bun:"table:companies,alias:c"`

	ID         uuid.UUID `bun:",pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	OwnerEmail string    `bun:"owner_email,notnull" json:"owner_email"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
