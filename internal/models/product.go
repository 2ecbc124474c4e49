package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Unit is a measurement unit for products and scenario slots
type Unit string

const (
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
	UnitLiter    Unit = "l"
	UnitMilli    Unit = "ml"
	UnitPiece    Unit = "piece"
)

// ParseUnit accepts the catalog's Russian abbreviations as well as the canonical names.
// Unknown values are returned lowercased as-is.
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(s, "."))) {
	case "kg", "кг":
		return UnitKilogram
	case "g", "г", "гр":
		return UnitGram
	case "l", "л":
		return UnitLiter
	case "ml", "мл":
		return UnitMilli
	case "piece", "pcs", "pc", "шт":
		return UnitPiece
	default:
		return Unit(strings.ToLower(strings.TrimSpace(s)))
	}
}

// UnmarshalJSON decodes a unit through ParseUnit.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*u = ParseUnit(s)
	return nil
}

// Well-known meal roles
const (
	RoleMainCourse = "main_course"
	RoleSideDish   = "side_dish"
	RoleBeverage   = "beverage"
	RoleBakery     = "bakery"
	RoleDessert    = "dessert"
	RoleSalad      = "salad"
	RoleSauce      = "sauce"
	RoleSnack      = "snack"
	RoleOther      = "other"
)

// Product is an immutable snapshot of a purchasable catalog entry.
// PricePerUnit is the price of one package of PackageSize in Unit.
type Product struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Brand        string    `json:"brand,omitempty"`
	PricePerUnit float64   `json:"price_per_unit"`
	Unit         Unit      `json:"unit"`
	PackageSize  float64   `json:"package_size"`
	Tags         []string  `json:"tags"`
	MealRoles    []string  `json:"meal_roles"`
	Vector       []float32 `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// HasTag reports whether the product carries tag (case-insensitive).
func (p *Product) HasTag(tag string) bool {
	return containsFold(p.Tags, tag)
}

// HasAnyTag reports whether any of tags is present on the product.
func (p *Product) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if p.HasTag(t) {
			return true
		}
	}
	return false
}

// HasRole reports whether the product can fill the given meal role.
func (p *Product) HasRole(role string) bool {
	return containsFold(p.MealRoles, role)
}

// PrimaryRole is the first meal role, or "" when none is assigned.
func (p *Product) PrimaryRole() string {
	if len(p.MealRoles) == 0 {
		return ""
	}
	return p.MealRoles[0]
}

// EmbeddingText is the text embedded to produce a product's semantic vector.
func (p *Product) EmbeddingText() string {
	return strings.TrimSpace(p.Name + " " + p.Category)
}

// UpsertProductRequest is the request body for creating or updating a product
type UpsertProductRequest struct {
	ID           *int     `json:"id,omitempty"`
	Name         string   `json:"name" validate:"required,max=255"`
	Category     string   `json:"category" validate:"max=255"`
	Brand        string   `json:"brand,omitempty" validate:"max=255"`
	PricePerUnit float64  `json:"price_per_unit" validate:"gt=0"`
	Unit         string   `json:"unit" validate:"required"`
	PackageSize  float64  `json:"package_size" validate:"gt=0"`
	Tags         []string `json:"tags,omitempty"`
	MealRoles    []string `json:"meal_roles,omitempty"`
}

// ProductListParams contains parameters for listing products
type ProductListParams struct {
	Limit  int
	Offset int
	Search string
	Tag    string
	Role   string
}

// CandidateQuery narrows a candidate pool fetch.
// Zero values mean no bound.
type CandidateQuery struct {
	ExcludeTags []string
	IncludeTags []string
	MinPrice    float64
	MaxPrice    float64
	Limit       int
	Shuffle     bool
}

func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}
