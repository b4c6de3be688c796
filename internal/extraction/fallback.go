package extraction

import (
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/voice-budget/internal/domain"
)

// categoryRule assigns category when any keyword appears as a substring of the
// lower-cased transcript. Rules are evaluated in slice order; first match wins.
type categoryRule struct {
	category domain.Category
	keywords []string
}

var expenseCategoryRules = []categoryRule{
	{domain.CategoryFood, []string{"food", "lunch", "dinner", "breakfast", "coffee", "restaurant", "meal"}},
	{domain.CategoryTransport, []string{"transport", "gas", "uber", "taxi", "bus", "train"}},
	{domain.CategoryShopping, []string{"shopping", "clothes", "buy"}},
	{domain.CategoryEntertainment, []string{"movie", "game", "entertainment"}},
}

// tripKeywords mark a budget transcript as a trip.
var tripKeywords = []string{"trip", "vacation", "travel", "visit"}

// itemRule appends one budget item when any keyword appears in the transcript.
// Every rule is evaluated independently, in slice order.
type itemRule struct {
	name     string
	category domain.Category
	keyword  *regexp.Regexp
	amount   *regexp.Regexp
}

// numberPattern matches "200", "12.50" and "1,200".
const numberPattern = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

// clauseGap is what may sit between a keyword and its amount: anything but
// digits and clause separators, so "hotel for 200" matches and
// "hotel, food 150" does not give 150 to the hotel.
const clauseGap = `[^\d,;.!?\n]*?`

func newItemRule(name string, category domain.Category, keywords ...string) itemRule {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	alt := `(?i)(?:` + strings.Join(quoted, "|") + `)`
	return itemRule{
		name:     name,
		category: category,
		keyword:  regexp.MustCompile(alt),
		amount:   regexp.MustCompile(alt + clauseGap + numberPattern),
	}
}

// quantityUnitRe matches a count word right after a number, as in
// "3 nights" or "20 people". Such numbers are not amounts.
var quantityUnitRe = regexp.MustCompile(`(?i)^\s*(?:nights?|days?|weeks?|hours?|people|persons?|guests?|tickets?|times)\b`)

// plannedAmount returns the first keyword-then-number match whose number is not
// a quantity of some unit.
func (r itemRule) plannedAmount(transcript string) (decimal.Decimal, bool) {
	for _, m := range r.amount.FindAllStringSubmatchIndex(transcript, -1) {
		if quantityUnitRe.MatchString(transcript[m[3]:]) {
			continue
		}
		if d, ok := parseNumber(transcript[m[2]:m[3]]); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

var budgetItemRules = []itemRule{
	newItemRule("Hotel", domain.CategoryTravel, "hotel", "accommodation", "stay"),
	newItemRule("Food", domain.CategoryFood, "food", "restaurant", "dining", "meal"),
	newItemRule("Transportation", domain.CategoryTransport, "transport", "flight", "bus", "train", "taxi", "uber"),
	newItemRule("Entertainment", domain.CategoryEntertainment, "entertainment", "show", "movie", "activity"),
}

var (
	expenseAmountRe = regexp.MustCompile(`(\d+(?:\.\d{2})?)`)
	anyNumberRe     = regexp.MustCompile(numberPattern)
)

// FallbackExpense extracts an expense from transcript without any network
// call. It is a pure function of transcript and today.
func FallbackExpense(transcript string, today civil.Date) domain.ExpenseRecord {
	lower := strings.ToLower(transcript)

	rec := domain.ExpenseRecord{
		Category:    matchCategory(lower),
		Description: transcript,
		Date:        today,
	}
	if m := expenseAmountRe.FindStringSubmatch(lower); m != nil {
		if amount, err := decimal.NewFromString(m[1]); err == nil {
			rec.Amount = &amount
		}
	}
	return rec
}

// FallbackBudget builds a budget plan from keyword groups. The result always
// has at least one item.
func FallbackBudget(transcript string) domain.BudgetPlan {
	plan := domain.BudgetPlan{
		Type: inferBudgetType(strings.ToLower(transcript)),
	}
	if plan.Type == domain.BudgetTypeTrip {
		plan.Title = TripBudgetTitle
	} else {
		plan.Title = EventBudgetTitle
	}

	for _, rule := range budgetItemRules {
		if !rule.keyword.MatchString(transcript) {
			continue
		}
		planned := decimal.NewFromInt(matchedItemPlanned)
		if d, ok := rule.plannedAmount(transcript); ok {
			planned = d
		}
		plan.Items = append(plan.Items, domain.BudgetLineItem{
			Name:     rule.name,
			Category: rule.category,
			Planned:  planned,
		})
	}

	if len(plan.Items) == 0 {
		plan.Items = []domain.BudgetLineItem{syntheticItem(transcript)}
	}
	return plan
}

// syntheticItem carries the whole transcript in Notes so the user can fix an
// unrecognised request by hand.
func syntheticItem(transcript string) domain.BudgetLineItem {
	planned := decimal.NewFromInt(syntheticItemPlanned)
	if m := anyNumberRe.FindString(transcript); m != "" {
		if d, ok := parseNumber(m); ok {
			planned = d
		}
	}
	return domain.BudgetLineItem{
		Name:     DefaultItemName,
		Category: domain.CategoryOther,
		Planned:  planned,
		Notes:    transcript,
	}
}

func matchCategory(lower string) domain.Category {
	for _, rule := range expenseCategoryRules {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}
	return domain.CategoryOther
}

func inferBudgetType(lower string) domain.BudgetType {
	if containsAny(lower, tripKeywords) {
		return domain.BudgetTypeTrip
	}
	return domain.BudgetTypeEvent
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func parseNumber(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	return d, err == nil
}
