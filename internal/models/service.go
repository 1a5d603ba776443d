package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Category is the fixed enumeration of service categories. Each category has
// a display name and an icon key for the service picker.
type Category string

const (
	CategoryCleaning    Category = "cleaning"
	CategoryElectrical  Category = "electrical"
	CategoryGardening   Category = "gardening"
	CategoryHVAC        Category = "hvac"
	CategoryMoving      Category = "moving"
	CategoryPainting    Category = "painting"
	CategoryPestControl Category = "pest_control"
	CategoryPlumbing    Category = "plumbing"
)

type categoryInfo struct {
	Display string
	Icon    string
}

var categories = map[Category]categoryInfo{
	CategoryCleaning:    {Display: "Cleaning", Icon: "broom"},
	CategoryElectrical:  {Display: "Electrical", Icon: "bolt"},
	CategoryGardening:   {Display: "Gardening", Icon: "leaf"},
	CategoryHVAC:        {Display: "Heating & Cooling", Icon: "thermometer"},
	CategoryMoving:      {Display: "Moving", Icon: "truck"},
	CategoryPainting:    {Display: "Painting", Icon: "paint-roller"},
	CategoryPestControl: {Display: "Pest Control", Icon: "bug"},
	CategoryPlumbing:    {Display: "Plumbing", Icon: "wrench"},
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

func (c Category) Display() string { return categories[c].Display }
func (c Category) Icon() string    { return categories[c].Icon }

// Categories returns the fixed category list in stable order.
func Categories() []Category {
	return []Category{
		CategoryCleaning,
		CategoryElectrical,
		CategoryGardening,
		CategoryHVAC,
		CategoryMoving,
		CategoryPainting,
		CategoryPestControl,
		CategoryPlumbing,
	}
}

// Service is a named offering of a company; service areas reference exactly
// one service.
type Service struct {
	bun.BaseModel `bun:"table:services,alias:svc"`

	ID          uuid.UUID `bun:",pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	CompanyID   uuid.UUID `bun:"company_id,type:uuid,notnull" json:"company_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	Category    Category  `bun:"category,notnull" json:"category"`
	OwnerEmail  string    `bun:"owner_email,notnull" json:"owner_email"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
