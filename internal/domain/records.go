package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what the extraction service returns.
	decimal.MarshalJSONWithoutQuotes = true
}

// ExpenseRecord is a single spoken expense after extraction.
// Amount is nil when no numeric quantity could be identified; the user is
// expected to fill it in manually.
type ExpenseRecord struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    Category         `json:"category"`
	Description string           `json:"description"`
	Date        civil.Date       `json:"date"` // YYYY-MM-DD
}

// Summary renders the one-line confirmation shown after a successful extraction,
// e.g. "lunch - $25".
func (r ExpenseRecord) Summary() string {
	if r.Amount == nil {
		return r.Description
	}
	return fmt.Sprintf("%s - $%s", r.Description, r.Amount.String())
}

// BudgetType distinguishes trip budgets from event budgets.
type BudgetType string

const (
	BudgetTypeTrip  BudgetType = "Trip"
	BudgetTypeEvent BudgetType = "Event"
)

// ParseBudgetType matches s case-insensitively against the known types.
func ParseBudgetType(s string) (BudgetType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trip":
		return BudgetTypeTrip, true
	case "event":
		return BudgetTypeEvent, true
	}
	return "", false
}

// BudgetPlan is an event or trip budget with its line items in the order
// they were mentioned.
type BudgetPlan struct {
	Title string           `json:"title"`
	Type  BudgetType       `json:"type"`
	Items []BudgetLineItem `json:"items"`
}

// TotalPlanned sums the planned amounts of every item.
func (p BudgetPlan) TotalPlanned() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Planned)
	}
	return total
}

// BudgetLineItem is one planned cost inside a BudgetPlan.
type BudgetLineItem struct {
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Planned  decimal.Decimal `json:"planned"`
	Notes    string          `json:"notes"`
}
