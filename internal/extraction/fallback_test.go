package extraction

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/voice-budget/internal/domain"
)

var testToday = civil.Date{Year: 2026, Month: 10, Day: 18}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestFallbackExpense(t *testing.T) {
	tests := []struct {
		name         string
		transcript   string
		wantAmount   string // empty means absent
		wantCategory domain.Category
	}{
		{"coffee", "bought coffee for 5 bucks", "5", domain.CategoryFood},
		{"lunch with decimals", "Lunch was 12.50 dollars", "12.50", domain.CategoryFood},
		{"single decimal digit is dropped", "dinner 12.5", "12", domain.CategoryFood},
		{"uber", "Uber ride home 18 dollars", "18", domain.CategoryTransport},
		{"gas", "filled up gas for 40", "40", domain.CategoryTransport},
		{"shopping", "went shopping and spent 120", "120", domain.CategoryShopping},
		{"movie", "movie tickets 30", "30", domain.CategoryEntertainment},
		{"first group wins", "coffee on the train 4", "4", domain.CategoryFood},
		{"no keyword", "paid the plumber 90", "90", domain.CategoryOther},
		{"no amount", "bought a coffee", "", domain.CategoryFood},
		{"empty", "", "", domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FallbackExpense(tt.transcript, testToday)

			assert.Equal(t, tt.wantCategory, rec.Category)
			assert.Equal(t, tt.transcript, rec.Description)
			assert.Equal(t, testToday, rec.Date)
			if tt.wantAmount == "" {
				assert.Nil(t, rec.Amount)
			} else {
				require.NotNil(t, rec.Amount)
				requireDecimal(t, tt.wantAmount, *rec.Amount)
			}
		})
	}
}

func TestFallbackExpense_Idempotent(t *testing.T) {
	transcript := "I spent 25 dollars on lunch today"
	assert.Equal(t, FallbackExpense(transcript, testToday), FallbackExpense(transcript, testToday))
}

func TestFallbackBudget_TripWithAmounts(t *testing.T) {
	plan := FallbackBudget("Plan a weekend trip to Paris, need hotel for 200, food budget 150, and transportation 100")

	assert.Equal(t, domain.BudgetTypeTrip, plan.Type)
	assert.Equal(t, TripBudgetTitle, plan.Title)
	require.Len(t, plan.Items, 3)

	want := []struct {
		name     string
		category domain.Category
		planned  string
	}{
		{"Hotel", domain.CategoryTravel, "200"},
		{"Food", domain.CategoryFood, "150"},
		{"Transportation", domain.CategoryTransport, "100"},
	}
	for i, w := range want {
		assert.Equal(t, w.name, plan.Items[i].Name)
		assert.Equal(t, w.category, plan.Items[i].Category)
		requireDecimal(t, w.planned, plan.Items[i].Planned)
		assert.Empty(t, plan.Items[i].Notes)
	}
}

func TestFallbackBudget_NoKeywordMatch(t *testing.T) {
	transcript := "need to figure out my plans"
	plan := FallbackBudget(transcript)

	assert.Equal(t, domain.BudgetTypeEvent, plan.Type)
	assert.Equal(t, EventBudgetTitle, plan.Title)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, DefaultItemName, plan.Items[0].Name)
	assert.Equal(t, domain.CategoryOther, plan.Items[0].Category)
	requireDecimal(t, "100", plan.Items[0].Planned)
	assert.Equal(t, transcript, plan.Items[0].Notes)
}

func TestFallbackBudget_SyntheticItemUsesFirstNumber(t *testing.T) {
	plan := FallbackBudget("birthday party for 1,200 people maybe 300 more")
	require.Len(t, plan.Items, 1)
	requireDecimal(t, "1200", plan.Items[0].Planned)
}

func TestFallbackBudget_KeywordWithoutNearbyNumber(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wantNames  []string
		wantPlan   []string
	}{
		{
			name:       "number in a later clause is not taken",
			transcript: "we need a hotel, and the band costs 400",
			wantNames:  []string{"Hotel"},
			wantPlan:   []string{"50"},
		},
		{
			name:       "case insensitive keywords",
			transcript: "HOTEL 300. Movie night 25",
			wantNames:  []string{"Hotel", "Entertainment"},
			wantPlan:   []string{"300", "25"},
		},
		{
			name:       "later occurrence with number is used",
			transcript: "food is important; food budget 80",
			wantNames:  []string{"Food"},
			wantPlan:   []string{"80"},
		},
		{
			name:       "currency symbol between keyword and amount",
			transcript: "flight $450.99",
			wantNames:  []string{"Transportation"},
			wantPlan:   []string{"450.99"},
		},
		{
			name:       "count of nights is not the amount",
			transcript: "I'll stay 3 nights at the hotel for 200",
			wantNames:  []string{"Hotel"},
			wantPlan:   []string{"200"},
		},
		{
			name:       "count of people alone takes the default",
			transcript: "meal for 12 people",
			wantNames:  []string{"Food"},
			wantPlan:   []string{"50"},
		},
		{
			name:       "all four groups in fixed order",
			transcript: "show 20; uber 15; meal 30; stay 90",
			wantNames:  []string{"Hotel", "Food", "Transportation", "Entertainment"},
			wantPlan:   []string{"90", "30", "15", "20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := FallbackBudget(tt.transcript)
			require.Len(t, plan.Items, len(tt.wantNames))
			for i := range tt.wantNames {
				assert.Equal(t, tt.wantNames[i], plan.Items[i].Name)
				requireDecimal(t, tt.wantPlan[i], plan.Items[i].Planned)
			}
		})
	}
}

func TestFallbackBudget_TypeDetection(t *testing.T) {
	assert.Equal(t, domain.BudgetTypeTrip, FallbackBudget("Vacation in Rome").Type)
	assert.Equal(t, domain.BudgetTypeTrip, FallbackBudget("going to visit grandma").Type)
	assert.Equal(t, domain.BudgetTypeTrip, FallbackBudget("TRAVEL budget").Type)
	assert.Equal(t, domain.BudgetTypeEvent, FallbackBudget("wedding reception").Type)
}

func TestFallbackBudget_Idempotent(t *testing.T) {
	transcript := "hotel 120 and dinner 60"
	assert.Equal(t, FallbackBudget(transcript), FallbackBudget(transcript))
}

func TestFallbackRules_ClosedCategories(t *testing.T) {
	for _, r := range expenseCategoryRules {
		assert.True(t, r.category.Valid(), "expense rule category %q", r.category)
	}
	for _, r := range budgetItemRules {
		assert.True(t, r.category.Valid(), "budget rule category %q", r.category)
	}
}
