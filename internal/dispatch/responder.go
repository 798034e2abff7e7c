package dispatch

import (
	"fmt"
	"strings"

	"ledgerchat/internal/classifier"
	"ledgerchat/internal/core"
)

// respondQuery is pure formatting over the last-known aggregate; it never
// reads the store. An unrecognized subtype falls back to the balance summary.
func (d *Dispatcher) respondQuery(queryType string, agg core.Aggregate) string {
	switch queryType {
	case classifier.QueryBalance:
		return fmt.Sprintf("Balance: %s. Income: %s. Expense: %s.",
			agg.Balance, agg.IncomeTotal, agg.ExpenseTotal)

	case classifier.QueryHighestExpense:
		top, ok := agg.HighestExpense()
		if !ok {
			return "Highest spending: None (₹0)."
		}
		return fmt.Sprintf("Highest spending: %s (%s).", top.Name, top.Amount)

	case classifier.QueryReport:
		if len(agg.CategoryTotals) == 0 {
			return "No expenses yet."
		}
		var b strings.Builder
		b.WriteString("Category breakdown:")
		for _, ca := range agg.CategoryTotals {
			fmt.Fprintf(&b, "\n- %s: %s", ca.Name, ca.Amount)
		}
		return b.String()

	case classifier.QueryInsight:
		return d.insight(agg)

	default:
		return fmt.Sprintf("Here is your summary: balance is %s.", agg.Balance)
	}
}

// insight compares total and per-category spending against noted goals.
func (d *Dispatcher) insight(agg core.Aggregate) string {
	if agg.ExpenseTotal.Cents == 0 {
		return "No spending data yet. Add an expense!"
	}

	var warnings []string
	for _, g := range d.Goals() {
		spent := spentAgainst(agg, g.Category)
		switch {
		case spent.Cents > g.Amount.Cents:
			warnings = append(warnings, fmt.Sprintf("You have exceeded your %s budget of %s!", goalLabel(g.Category), g.Amount))
		case spent.Cents*10 >= g.Amount.Cents*8:
			warnings = append(warnings, fmt.Sprintf("Careful! You are at 80%% of your %s budget.", goalLabel(g.Category)))
		}
	}

	msg := fmt.Sprintf("Total spending: %s.", agg.ExpenseTotal)
	if len(warnings) > 0 {
		return msg + " " + strings.Join(warnings, " ")
	}
	return msg + " You are within safe limits. Keep saving!"
}

// spentAgainst resolves what a goal is measured against: a category total,
// or the overall expense total for an uncategorized goal.
func spentAgainst(agg core.Aggregate, category string) core.Money {
	if category == "" {
		return agg.ExpenseTotal
	}
	for _, ca := range agg.CategoryTotals {
		if ca.Name == category {
			return ca.Amount
		}
	}
	return core.Money{}
}
