package models

import (
	"fmt"
	"strings"
	"time"
)

// ProductCategory groups products in the public catalogue.
type ProductCategory string

const (
	ProductCategorySpices     ProductCategory = "spices"
	ProductCategoryGrains     ProductCategory = "grains"
	ProductCategoryPulses     ProductCategory = "pulses"
	ProductCategoryOilseeds   ProductCategory = "oilseeds"
	ProductCategoryDriedFruit ProductCategory = "dried_fruit"
	ProductCategoryOther      ProductCategory = "other"
)

var validProductCategories = map[ProductCategory]struct{}{
	ProductCategorySpices:     {},
	ProductCategoryGrains:     {},
	ProductCategoryPulses:     {},
	ProductCategoryOilseeds:   {},
	ProductCategoryDriedFruit: {},
	ProductCategoryOther:      {},
}

// Product is one exportable good. ImageRefs is the ordered list of blob
// references owned by the row; order is the display order.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Origin      string    `json:"origin,omitempty"`
	Description string    `json:"description,omitempty"`
	Packaging   []string  `json:"packaging,omitempty"`
	ImageRefs   []string  `json:"images"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ParseProductCategory(raw string) (ProductCategory, error) {
	value := ProductCategory(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("product category is required")
	}
	if _, ok := validProductCategories[value]; !ok {
		return "", fmt.Errorf("invalid product category: %s", value)
	}
	return value, nil
}
