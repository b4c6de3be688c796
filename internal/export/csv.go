// Package export renders extracted records as CSV reports.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/voice-budget/internal/domain"
)

var (
	expenseHeader = []string{"Date", "Category", "Amount", "Description"}
	budgetHeader  = []string{"Name", "Category", "Planned", "Notes"}
)

// WriteExpenses writes one row per record under the Date,Category,Amount,Description
// header. A missing amount is an empty cell.
func WriteExpenses(w io.Writer, records []domain.ExpenseRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(expenseHeader); err != nil {
		return fmt.Errorf("write expense header: %w", err)
	}

	for i, rec := range records {
		amount := ""
		if rec.Amount != nil {
			amount = rec.Amount.String()
		}
		row := []string{rec.Date.String(), string(rec.Category), amount, rec.Description}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write expense row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteBudget writes the plan's items in order under the Name,Category,Planned,Notes
// header, followed by a Total row.
func WriteBudget(w io.Writer, plan domain.BudgetPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(budgetHeader); err != nil {
		return fmt.Errorf("write budget header: %w", err)
	}

	for i, item := range plan.Items {
		row := []string{item.Name, string(item.Category), item.Planned.StringFixed(2), item.Notes}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write budget row %d: %w", i, err)
		}
	}

	if err := cw.Write([]string{"Total", "", plan.TotalPlanned().StringFixed(2), plan.Title}); err != nil {
		return fmt.Errorf("write budget total: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// FileName returns the conventional report name, e.g. expenses-2026-10-18.csv.
func FileName(kind string, day civil.Date) string {
	return fmt.Sprintf("%s-%s.csv", kind, day)
}

// ReadJSONLines decodes one JSON value per non-blank line of r.
func ReadJSONLines[T any](r io.Reader) ([]T, error) {
	var out []T

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return out, nil
}
