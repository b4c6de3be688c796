package domain

import "strings"

// Category is one label from the closed expense category set.
type Category string

const (
	CategoryFood          Category = "Food & Dining"
	CategoryTransport     Category = "Transportation"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryBills         Category = "Bills & Utilities"
	CategoryHealthcare    Category = "Healthcare"
	CategoryTravel        Category = "Travel"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

// Categories lists the closed set in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealthcare,
	CategoryTravel,
	CategoryEducation,
	CategoryOther,
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the closed set ignoring case and surrounding
// whitespace. Unknown or empty labels map to CategoryOther.
func ParseCategory(s string) Category {
	norm := normalizeCategory(s)
	for _, known := range Categories {
		if normalizeCategory(string(known)) == norm {
			return known
		}
	}
	return CategoryOther
}

// normalizeCategory converts to uppercase and trims whitespace for
// case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
