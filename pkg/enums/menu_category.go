package enums

import "fmt"

// MenuCategory buckets menu items for display and reporting.
type MenuCategory string

const (
	MenuCategoryAppetizer MenuCategory = "appetizer"
	MenuCategoryEntree    MenuCategory = "entree"
	MenuCategorySide      MenuCategory = "side"
	MenuCategoryDessert   MenuCategory = "dessert"
	MenuCategoryBeverage  MenuCategory = "beverage"
)

var validMenuCategories = []MenuCategory{
	MenuCategoryAppetizer,
	MenuCategoryEntree,
	MenuCategorySide,
	MenuCategoryDessert,
	MenuCategoryBeverage,
}

// String implements fmt.Stringer.
func (m MenuCategory) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MenuCategory.
func (m MenuCategory) IsValid() bool {
	for _, candidate := range validMenuCategories {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMenuCategory converts raw input into a MenuCategory.
func ParseMenuCategory(value string) (MenuCategory, error) {
	for _, candidate := range validMenuCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid menu category %q", value)
}
