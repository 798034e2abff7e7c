package dispatch

import (
	"context"
	"strings"
	"testing"

	"ledgerchat/internal/classifier"
	"ledgerchat/internal/core"
	"ledgerchat/internal/ledger/memory"
)

// stubClassifier returns a fixed classification or error.
type stubClassifier struct {
	result classifier.Classification
	err    error
}

func (s stubClassifier) Classify(_ context.Context, message string) (classifier.Classification, error) {
	if s.err != nil {
		return classifier.Classification{}, s.err
	}
	res := s.result
	if res.OriginalText == "" {
		res.OriginalText = message
	}
	return res, nil
}

// staticAggregates serves a fixed aggregate snapshot.
type staticAggregates struct {
	agg core.Aggregate
}

func (s staticAggregates) Current() core.Aggregate { return s.agg }

func newDispatcher(cl classifier.Classifier, store *memory.Store, agg core.Aggregate) *Dispatcher {
	return New(cl, store, staticAggregates{agg: agg}, nil, 500000)
}

func botText(entries []Entry) string {
	var parts []string
	for _, e := range entries {
		if e.Sender == SenderBot {
			parts = append(parts, e.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestHandleEchoesUserFirst(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{err: classifier.ErrClassification}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "gibberish")
	if len(entries) < 2 {
		t.Fatalf("expected echo plus reply, got %d entries", len(entries))
	}
	if entries[0].Sender != SenderUser || entries[0].Text != "gibberish" {
		t.Fatalf("first entry should echo the raw text, got %+v", entries[0])
	}
}

func TestHandleTransactionAppends(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent:   classifier.IntentTransaction,
		Amount:   core.Money{Cents: 50000},
		Type:     core.Expense,
		Category: "Food",
	}}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "spent 500 on food")
	if store.Len() != 1 {
		t.Fatalf("store count = %d, want 1", store.Len())
	}
	reply := botText(entries)
	if !strings.Contains(reply, "Logged: Expense of ₹500 for Food.") {
		t.Fatalf("unexpected confirmation: %q", reply)
	}
	if strings.Contains(reply, msgHighExpense) {
		t.Fatalf("no alert expected below threshold: %q", reply)
	}
}

func TestHandleTransactionHighValueAlert(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent:   classifier.IntentTransaction,
		Amount:   core.Money{Cents: 600000},
		Type:     core.Expense,
		Category: "Shopping",
	}}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "spent 6000 on a phone")
	if !strings.Contains(botText(entries), msgHighExpense) {
		t.Fatalf("expected high value alert, got %q", botText(entries))
	}
}

func TestHandleTransactionZeroAmountNeverAppends(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent: classifier.IntentTransaction,
		Amount: core.Money{Cents: 0},
		Type:   core.Expense,
	}}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "spent on food")
	if store.Len() != 0 {
		t.Fatalf("store count = %d, want 0", store.Len())
	}
	if !strings.Contains(botText(entries), "couldn't read the amount") {
		t.Fatalf("expected amount clarification, got %q", botText(entries))
	}
}

func TestHandleClassificationFailureNoMutation(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{err: classifier.ErrClassification}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "??")
	if store.Len() != 0 {
		t.Fatalf("failure must not mutate, store count = %d", store.Len())
	}
	if botText(entries) != msgApology {
		t.Fatalf("expected apology, got %q", botText(entries))
	}
}

func TestHandleReset(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		store.Append(ctx, core.Transaction{
			OriginalText: "spent 100",
			Amount:       core.Money{Cents: 10000},
			Type:         core.Expense,
			Category:     "Misc",
		})
	}

	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent: classifier.IntentReset,
	}}, store, core.Aggregate{})

	entries := d.Handle(ctx, "reset everything")
	if store.Len() != 0 {
		t.Fatalf("store count after reset = %d, want 0", store.Len())
	}
	if !strings.Contains(botText(entries), msgResetDone) {
		t.Fatalf("expected reset confirmation, got %q", botText(entries))
	}

	snap, _ := store.Snapshot(ctx)
	if !core.Summarize(snap).IsZero() {
		t.Fatal("aggregate after reset should be zero")
	}
}

func TestHandleBudgetGoalPersistsNothing(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent:   classifier.IntentBudgetGoal,
		Amount:   core.Money{Cents: 300000},
		Category: "Food",
	}}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "set a budget of 3000 for food")
	if store.Len() != 0 {
		t.Fatalf("goals are not transactions, store count = %d", store.Len())
	}
	reply := botText(entries)
	if !strings.Contains(reply, "noted your goal") || !strings.Contains(reply, "₹3,000") {
		t.Fatalf("unexpected goal acknowledgement: %q", reply)
	}
	goals := d.Goals()
	if len(goals) != 1 || goals[0].Category != "Food" || goals[0].Amount.Cents != 300000 {
		t.Fatalf("goal not recorded: %+v", goals)
	}
}

func TestHandleUnknownIntent(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent: "smalltalk",
	}}, store, core.Aggregate{})

	entries := d.Handle(context.Background(), "hello there")
	if botText(entries) != msgNotUnderstood {
		t.Fatalf("expected generic reply, got %q", botText(entries))
	}
	if store.Len() != 0 {
		t.Fatal("unknown intent must not mutate")
	}
}

func scenarioAggregate() core.Aggregate {
	return core.Summarize([]core.Transaction{
		{OriginalText: "salary", Amount: core.Money{Cents: 100000}, Type: core.Income, Category: "Income"},
		{OriginalText: "food", Amount: core.Money{Cents: 20000}, Type: core.Expense, Category: "Food"},
		{OriginalText: "food", Amount: core.Money{Cents: 10000}, Type: core.Expense, Category: "Food"},
		{OriginalText: "bus", Amount: core.Money{Cents: 5000}, Type: core.Expense, Category: "Transport"},
	})
}

func TestQueryResponses(t *testing.T) {
	store := memory.New()
	agg := scenarioAggregate()

	tests := []struct {
		queryType string
		want      string
	}{
		{"balance", "Balance: ₹650. Income: ₹1,000. Expense: ₹350."},
		{"highest_expense", "Highest spending: Food (₹300)."},
		{"report", "Category breakdown:\n- Food: ₹300\n- Transport: ₹50"},
		{"something_new", "Here is your summary: balance is ₹650."},
	}
	for _, tt := range tests {
		d := newDispatcher(stubClassifier{result: classifier.Classification{
			Intent:    classifier.IntentQuery,
			QueryType: tt.queryType,
		}}, store, agg)
		entries := d.Handle(context.Background(), "query")
		if got := botText(entries); got != tt.want {
			t.Errorf("query %q = %q, want %q", tt.queryType, got, tt.want)
		}
	}
}

func TestQueryEmptyState(t *testing.T) {
	store := memory.New()

	tests := []struct {
		queryType string
		want      string
	}{
		{"report", "No expenses yet."},
		{"highest_expense", "Highest spending: None (₹0)."},
		{"balance", "Balance: ₹0. Income: ₹0. Expense: ₹0."},
	}
	for _, tt := range tests {
		d := newDispatcher(stubClassifier{result: classifier.Classification{
			Intent:    classifier.IntentQuery,
			QueryType: tt.queryType,
		}}, store, core.Aggregate{})
		entries := d.Handle(context.Background(), "query")
		if got := botText(entries); got != tt.want {
			t.Errorf("query %q = %q, want %q", tt.queryType, got, tt.want)
		}
	}
}

func TestInsightAgainstGoals(t *testing.T) {
	store := memory.New()
	agg := scenarioAggregate()

	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent:    classifier.IntentQuery,
		QueryType: classifier.QueryInsight,
	}}, store, agg)

	// Within limits: no goals noted yet.
	got := botText(d.Handle(context.Background(), "insight"))
	if !strings.Contains(got, "Total spending: ₹350.") || !strings.Contains(got, "within safe limits") {
		t.Fatalf("unexpected insight: %q", got)
	}

	// Exceeded category goal.
	d.goals = []Goal{{Category: "Food", Amount: core.Money{Cents: 20000}}}
	got = botText(d.Handle(context.Background(), "insight"))
	if !strings.Contains(got, "exceeded your Food budget of ₹200") {
		t.Fatalf("expected exceeded warning, got %q", got)
	}

	// At 80% of an overall goal.
	d.goals = []Goal{{Category: "", Amount: core.Money{Cents: 40000}}}
	got = botText(d.Handle(context.Background(), "insight"))
	if !strings.Contains(got, "80%") {
		t.Fatalf("expected 80%% warning, got %q", got)
	}
}

func TestInsightNoSpending(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent:    classifier.IntentQuery,
		QueryType: classifier.QueryInsight,
	}}, store, core.Aggregate{})

	got := botText(d.Handle(context.Background(), "insight"))
	if got != "No spending data yet. Add an expense!" {
		t.Fatalf("unexpected insight for empty data: %q", got)
	}
}

func TestBusyGuardRejectsOverlap(t *testing.T) {
	store := memory.New()
	d := newDispatcher(stubClassifier{result: classifier.Classification{
		Intent: classifier.IntentTransaction,
		Amount: core.Money{Cents: 100},
		Type:   core.Expense,
	}}, store, core.Aggregate{})

	d.busy.Store(true) // simulate an in-flight turn
	entries := d.Handle(context.Background(), "spent 1")
	if botText(entries) != msgBusy {
		t.Fatalf("expected busy notice, got %q", botText(entries))
	}
	if store.Len() != 0 {
		t.Fatal("busy turn must not mutate")
	}
	d.busy.Store(false)

	entries = d.Handle(context.Background(), "spent 1")
	if store.Len() != 1 {
		t.Fatalf("follow-up turn should append, store count = %d", store.Len())
	}
	if botText(entries) == msgBusy {
		t.Fatal("guard should release after the turn completes")
	}
}
