package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/voice-budget/internal/domain"
	"github.com/dvloznov/voice-budget/internal/extraction"
)

type mockExtractor struct {
	expense domain.ExpenseRecord
	budget  domain.BudgetPlan
	err     error
}

func (m *mockExtractor) ExtractExpense(context.Context, string) (domain.ExpenseRecord, error) {
	return m.expense, m.err
}

func (m *mockExtractor) ExtractBudget(context.Context, string) (domain.BudgetPlan, error) {
	return m.budget, m.err
}

func TestExtractionHandler(t *testing.T) {
	amount := decimal.NewFromInt(5)
	ex := &mockExtractor{
		expense: domain.ExpenseRecord{Amount: &amount, Category: domain.CategoryFood, Description: "coffee", Date: civil.Date{Year: 2026, Month: 10, Day: 18}},
		budget: domain.BudgetPlan{Title: "Paris", Type: domain.BudgetTypeTrip, Items: []domain.BudgetLineItem{
			{Name: "Hotel", Category: domain.CategoryTravel, Planned: decimal.NewFromInt(200)},
		}},
	}
	handler := NewExtractionHandler(ex)
	ctx := context.Background()

	data, err := handler(ctx, &ExtractionJob{Schema: "expense", Transcript: "coffee 5"})
	require.NoError(t, err)
	var rec domain.ExpenseRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Contains(t, string(data), `"amount":5`)
	assert.Equal(t, domain.CategoryFood, rec.Category)

	data, err = handler(ctx, &ExtractionJob{Schema: "budget", Transcript: "hotel 200"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title":"Paris"`)
	assert.Contains(t, string(data), `"planned":200`)

	_, err = handler(ctx, &ExtractionJob{Schema: "invoice"})
	assert.Error(t, err)
}

func TestExtractionHandler_PassesErrorsThrough(t *testing.T) {
	cause := &extraction.Error{Kind: extraction.KindServiceCallFailed, Err: errors.New("503")}
	handler := NewExtractionHandler(&mockExtractor{err: cause})

	_, err := handler(context.Background(), &ExtractionJob{Schema: "budget"})
	assert.ErrorIs(t, err, extraction.ErrServiceCallFailed)
	assert.True(t, extraction.IsRetryable(err))
}

func TestValidSchema(t *testing.T) {
	assert.True(t, ValidSchema("expense"))
	assert.True(t, ValidSchema("budget"))
	assert.False(t, ValidSchema("Expense"))
	assert.False(t, ValidSchema(""))
}
