package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are plain JSON numbers in request bodies and stored records.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category is shared by budgets and payments.
type Category string

const (
	CategorySalary        Category = "salary"
	CategoryFreelance     Category = "freelance"
	CategoryInvestment    Category = "investment"
	CategoryOtherIncome   Category = "other-income"
	CategoryRent          Category = "rent"
	CategoryUtilities     Category = "utilities"
	CategoryGroceries     Category = "groceries"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryHealthcare    Category = "healthcare"
	CategoryEducation     Category = "education"
	CategoryShopping      Category = "shopping"
	CategorySubscription  Category = "subscription"
	CategoryOtherExpense  Category = "other-expense"
)

var categories = []Category{
	CategorySalary, CategoryFreelance, CategoryInvestment, CategoryOtherIncome,
	CategoryRent, CategoryUtilities, CategoryGroceries, CategoryTransport, CategoryEntertainment,
	CategoryHealthcare, CategoryEducation, CategoryShopping, CategorySubscription, CategoryOtherExpense,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}
