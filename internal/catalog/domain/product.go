package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

type Category string

const (
	CategoryLShaped      Category = "L-Shaped"
	CategoryUShaped      Category = "U-Shaped"
	CategoryRecliner     Category = "Recliner"
	CategorySofaBed      Category = "Sofa Bed"
	CategoryLoveseat     Category = "Loveseat"
	CategoryStationary   Category = "Stationary"
	CategoryCorner       Category = "Corner"
	CategorySingleSeater Category = "Single-Seater"
	CategoryChesterfield Category = "Chesterfield"
	CategoryModular      Category = "Modular"
)

var categories = []Category{
	CategoryLShaped, CategoryUShaped, CategoryRecliner, CategorySofaBed, CategoryLoveseat,
	CategoryStationary, CategoryCorner, CategorySingleSeater, CategoryChesterfield, CategoryModular,
}

type Material string

const (
	MaterialLeather    Material = "Leather"
	MaterialFabric     Material = "Fabric"
	MaterialVelvet     Material = "Velvet"
	MaterialMicrofiber Material = "Microfiber"
	MaterialWood       Material = "Wood"
	MaterialMetal      Material = "Metal"
)

var materials = []Material{MaterialLeather, MaterialFabric, MaterialVelvet, MaterialMicrofiber, MaterialWood, MaterialMetal}

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        Category        `json:"category"`
	Images          []string        `json:"images"`
	Material        Material        `json:"material"`
	Colors          []string        `json:"colors"`
	SeatingCapacity int             `json:"seatingCapacity"`
	Features        []string        `json:"features"`
	StockQuantity   int             `json:"stockQuantity"`
	InStock         bool            `json:"inStock"`
	Brand           string          `json:"brand"`
	Warranty        string          `json:"warranty"`
	Reviews         []Review        `json:"reviews"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type Review struct {
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Product) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", p.Name},
		{"slug", p.Slug},
		{"description", p.Description},
		{"category", string(p.Category)},
		{"material", string(p.Material)},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if !p.Price.IsPositive() {
		missing = append(missing, "price")
	}
	if p.SeatingCapacity <= 0 {
		missing = append(missing, "seatingCapacity")
	}
	if len(missing) > 0 {
		return apperr.Validation("Please fill all the required fields", missing...)
	}

	if !contains(categories, p.Category) {
		return apperr.Validation("Invalid category", "category")
	}
	if !contains(materials, p.Material) {
		return apperr.Validation("Invalid material", "material")
	}
	if p.StockQuantity < 0 {
		return apperr.Validation("Stock quantity cannot be negative", "stockQuantity")
	}
	for _, r := range p.Reviews {
		if r.Rating < 1 || r.Rating > 5 || strings.TrimSpace(r.Comment) == "" {
			return apperr.Validation("Reviews need a rating from 1 to 5 and a comment", "reviews")
		}
	}
	return nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
