package extraction

import (
	"encoding/json"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/voice-budget/internal/domain"
)

// normalizeExpense converts a validated model object into an ExpenseRecord,
// filling every missing or unusable field with its default.
func normalizeExpense(obj map[string]any, transcript string, today civil.Date) domain.ExpenseRecord {
	rec := domain.ExpenseRecord{
		Category:    categoryField(obj, "category"),
		Description: stringField(obj, "description", transcript),
		Date:        dateField(obj, "date", today),
	}
	if amount, ok := decimalField(obj, "amount"); ok {
		rec.Amount = &amount
	}
	return rec
}

// normalizeBudget converts a validated model object into a BudgetPlan. Items
// that are not objects are coerced to default items rather than dropped.
func normalizeBudget(obj map[string]any, transcript string) domain.BudgetPlan {
	plan := domain.BudgetPlan{
		Title: stringField(obj, "title", DefaultBudgetTitle),
		Type:  budgetTypeField(obj, "type", transcript),
	}

	rawItems, _ := obj["items"].([]any)
	plan.Items = make([]domain.BudgetLineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		item, _ := raw.(map[string]any)
		plan.Items = append(plan.Items, normalizeItem(item))
	}

	if len(plan.Items) == 0 {
		plan.Items = append(plan.Items, syntheticItem(transcript))
	}
	return plan
}

func normalizeItem(obj map[string]any) domain.BudgetLineItem {
	planned, ok := decimalField(obj, "planned")
	if !ok {
		planned = decimal.Zero
	}
	return domain.BudgetLineItem{
		Name:     stringField(obj, "name", DefaultItemName),
		Category: categoryField(obj, "category"),
		Planned:  planned,
		Notes:    stringField(obj, "notes", ""),
	}
}

// stringField returns the trimmed string at key, or def when the value is
// missing, blank, or not a string.
func stringField(m map[string]any, key, def string) string {
	s, ok := m[key].(string)
	if !ok {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// categoryField maps the value at key onto the closed category set.
func categoryField(m map[string]any, key string) domain.Category {
	s, _ := m[key].(string)
	return domain.ParseCategory(s)
}

// dateField accepts only YYYY-MM-DD strings.
func dateField(m map[string]any, key string, def civil.Date) civil.Date {
	s, ok := m[key].(string)
	if !ok {
		return def
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return def
	}
	return d
}

func budgetTypeField(m map[string]any, key, transcript string) domain.BudgetType {
	if s, ok := m[key].(string); ok {
		if t, ok := domain.ParseBudgetType(s); ok {
			return t
		}
	}
	return inferBudgetType(strings.ToLower(transcript))
}

// decimalField coerces numbers and numeric strings ("25", "$1,200.50") to a
// non-negative decimal. Anything else reports ok=false.
func decimalField(m map[string]any, key string) (decimal.Decimal, bool) {
	d, ok := toDecimal(m[key])
	if !ok {
		return decimal.Decimal{}, false
	}
	return d.Abs(), true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case string:
		s := strings.TrimSpace(val)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
