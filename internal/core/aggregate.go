package core

type (
	// CategoryAmount is an expense total attributed to one category label.
	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// Aggregate is the derived summary of a full record snapshot. It is a
	// disposable value; the document store stays the system of record.
	Aggregate struct {
		IncomeTotal  Money
		ExpenseTotal Money
		Balance      Money
		// CategoryTotals partitions expenses by category, preserving
		// first-occurrence order of the input sequence for rendering.
		CategoryTotals []CategoryAmount
	}
)

// Summarize recomputes every aggregate from the full ordered record sequence.
//
// It is a pure full-recompute function: the store subscription delivers
// complete snapshots rather than diffs, and recomputing from scratch cannot
// drift from the store. Income never contributes to a spending category;
// an expense with a missing category is grouped under its literal value,
// empty string included.
func Summarize(records []Transaction) Aggregate {
	var agg Aggregate
	index := make(map[string]int, len(records))
	for _, tx := range records {
		if tx.Type.IsIncome() {
			agg.IncomeTotal.Cents += tx.Amount.Cents
			continue
		}
		agg.ExpenseTotal.Cents += tx.Amount.Cents
		if i, ok := index[tx.Category]; ok {
			agg.CategoryTotals[i].Amount.Cents += tx.Amount.Cents
			continue
		}
		index[tx.Category] = len(agg.CategoryTotals)
		agg.CategoryTotals = append(agg.CategoryTotals, CategoryAmount{
			Name:   tx.Category,
			Amount: tx.Amount,
		})
	}
	agg.Balance.Cents = agg.IncomeTotal.Cents - agg.ExpenseTotal.Cents
	return agg
}

// HighestExpense returns the category with the maximum total. Ties keep the
// first maximum in iteration order. ok is false for an empty mapping.
func (a Aggregate) HighestExpense() (top CategoryAmount, ok bool) {
	for _, ca := range a.CategoryTotals {
		if !ok || ca.Amount.Cents > top.Amount.Cents {
			top = ca
			ok = true
		}
	}
	return top, ok
}

// IsZero reports whether the aggregate carries no data at all.
func (a Aggregate) IsZero() bool {
	return a.IncomeTotal.Cents == 0 && a.ExpenseTotal.Cents == 0 && len(a.CategoryTotals) == 0
}
