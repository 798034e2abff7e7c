package view

import (
	"ledgerchat/internal/core"
)

const previewLimit = 20

type (
	// LedgerRow is one rendered line of the transaction list.
	LedgerRow struct {
		Category string `json:"category"`
		Preview  string `json:"preview"` // truncated original text
		Amount   string `json:"amount"`  // signed, formatted
		Income   bool   `json:"income"`
	}

	// Figures are the formatted summary numbers.
	Figures struct {
		Balance string `json:"balance"`
		Income  string `json:"income"`
		Expense string `json:"expense"`
	}

	// ChartSlice is one category share for the chart, full replace-and-redraw
	// on every change.
	ChartSlice struct {
		Label string `json:"label"`
		Cents int64  `json:"cents"`
	}

	// View is the complete derived render state for one snapshot. It is
	// replaced wholesale on every change; consumers never see a partially
	// updated aggregate.
	View struct {
		Rows    []LedgerRow  `json:"rows"`
		Figures Figures      `json:"figures"`
		Chart   []ChartSlice `json:"chart"`
		Empty   bool         `json:"empty"` // render an explicit no-data indicator
	}
)

// Renderer receives every new view. Implementations must treat the value as
// read-only.
type Renderer interface {
	Render(View)
}

// Build derives the full render state from one record snapshot and its
// aggregate. Row order follows the snapshot (timestamp descending); chart
// order follows category first occurrence.
func Build(records []core.Transaction, agg core.Aggregate) View {
	v := View{
		Figures: Figures{
			Balance: agg.Balance.String(),
			Income:  agg.IncomeTotal.String(),
			Expense: agg.ExpenseTotal.String(),
		},
		Empty: len(records) == 0,
	}

	for _, tx := range records {
		sign := "-"
		if tx.Type.IsIncome() {
			sign = "+"
		}
		v.Rows = append(v.Rows, LedgerRow{
			Category: tx.Category,
			Preview:  truncate(tx.OriginalText, previewLimit),
			Amount:   sign + " " + tx.Amount.String(),
			Income:   tx.Type.IsIncome(),
		})
	}

	for _, ca := range agg.CategoryTotals {
		v.Chart = append(v.Chart, ChartSlice{Label: ca.Name, Cents: ca.Amount.Cents})
	}
	return v
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
