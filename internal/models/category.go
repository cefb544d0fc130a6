package models

import "strings"

// Category is the spending bucket of a transaction
type Category string

const (
	CategoryFood          Category = "food"
	CategoryEducation     Category = "education"
	CategoryEntertainment Category = "entertainment"
	CategoryLuxury        Category = "luxury"
	CategoryDonation      Category = "donation"
	CategoryOther         Category = "other"
)

// Categories lists every category in the order used to break ties.
var Categories = []Category{
	CategoryFood,
	CategoryEducation,
	CategoryEntertainment,
	CategoryLuxury,
	CategoryDonation,
	CategoryOther,
}

// SpendCategories are the buckets tracked in WeeklySummary.CategorySpend.
// Donations are tracked separately as DonatedAmount.
var SpendCategories = []Category{
	CategoryFood,
	CategoryEducation,
	CategoryEntertainment,
	CategoryLuxury,
	CategoryOther,
}

// NormalizeCategory maps blank or unknown values to CategoryOther
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}
