package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"ledgerchat/internal/classifier"
	"ledgerchat/internal/core"
	"ledgerchat/internal/ledger"
	applog "ledgerchat/internal/log"
)

// User-facing messages for the recoverable failure paths.
const (
	msgApology       = "Sorry, brain freeze (server error). Please try again."
	msgBadAmount     = "I couldn't read the amount. Please try format: 'Spent 500 on food'"
	msgStoreFailure  = "I couldn't reach the ledger right now. Your entry was not saved, please resend."
	msgBusy          = "One moment, I'm still working on your previous message."
	msgNotUnderstood = "I'm listening, but I didn't catch that."
	msgResetting     = "Clearing all financial data..."
	msgResetDone     = "Reset complete. Start fresh!"
	msgHighExpense   = "That's a high expense! Watch your budget."
)

// AggregateSource exposes the coordinator's current derived aggregate. Query
// intents read this cached value, never the store directly.
type AggregateSource interface {
	Current() core.Aggregate
}

// EventPublisher mirrors ledger mutations to the archive pipeline. Publish
// failures never affect the chat path.
type EventPublisher interface {
	PublishRecordAppended(ctx context.Context, id string, tx core.Transaction) error
	PublishLedgerReset(ctx context.Context, deleted int) error
}

// Goal is a budget target noted from a budget_goal intent. Goals are not
// transactions and are never persisted to the ledger.
type Goal struct {
	Category string
	Amount   core.Money
}

// Dispatcher routes classified intents to exactly one effect: a store
// mutation, a pure query against cached aggregates, or a clarification
// message. It never both mutates and fails silently.
type Dispatcher struct {
	classifier classifier.Classifier
	store      ledger.Store
	aggregates AggregateSource
	events     EventPublisher // optional

	// High-value expense alert threshold; zero disables the alert.
	alertThreshold core.Money

	// Single-slot guard serializing in-flight messages. A submission that
	// overlaps a pending one is rejected with a busy notice rather than
	// interleaved.
	busy atomic.Bool

	mu    sync.Mutex
	goals []Goal
}

func New(cl classifier.Classifier, store ledger.Store, aggregates AggregateSource, events EventPublisher, alertThresholdCents int64) *Dispatcher {
	return &Dispatcher{
		classifier:     cl,
		store:          store,
		aggregates:     aggregates,
		events:         events,
		alertThreshold: core.Money{Cents: alertThresholdCents},
	}
}

// Handle runs one chat turn and returns the transcript entries it produced.
// The user's raw text is echoed first, before the classifier is invoked; any
// store mutation happens before its confirmation entry.
func (d *Dispatcher) Handle(ctx context.Context, text string) []Entry {
	entries := []Entry{newEntry(text, SenderUser)}

	if !d.busy.CompareAndSwap(false, true) {
		return append(entries, newEntry(msgBusy, SenderBot))
	}
	defer d.busy.Store(false)

	res, err := d.classifier.Classify(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "Classification failed", applog.FieldError, err)
		return append(entries, newEntry(msgApology, SenderBot))
	}

	slog.InfoContext(ctx, "Dispatching intent",
		applog.FieldIntent, res.Intent,
		applog.FieldQueryType, res.QueryType,
		applog.FieldAmountCents, res.Amount.Cents)

	switch res.Intent {
	case classifier.IntentTransaction:
		return append(entries, d.handleTransaction(ctx, res)...)
	case classifier.IntentReset:
		return append(entries, d.handleReset(ctx)...)
	case classifier.IntentBudgetGoal:
		return append(entries, d.handleBudgetGoal(res)...)
	case classifier.IntentQuery:
		reply := d.respondQuery(res.QueryType, d.aggregates.Current())
		return append(entries, newEntry(reply, SenderBot))
	default:
		return append(entries, newEntry(msgNotUnderstood, SenderBot))
	}
}

func (d *Dispatcher) handleTransaction(ctx context.Context, res classifier.Classification) []Entry {
	if res.Amount.Cents <= 0 {
		// Classification failure, not a stored fact: no mutation.
		return []Entry{newEntry(msgBadAmount, SenderBot)}
	}

	tx := core.Transaction{
		OriginalText: res.OriginalText,
		Amount:       res.Amount,
		Type:         res.Type,
		Category:     res.Category,
	}
	id, err := d.store.Append(ctx, tx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to append transaction",
			applog.FieldError, err,
			applog.FieldAmountCents, tx.Amount.Cents,
			applog.FieldCategory, tx.Category)
		return []Entry{newEntry(msgStoreFailure, SenderBot)}
	}

	if d.events != nil {
		if err := d.events.PublishRecordAppended(ctx, id, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to publish append event", applog.FieldError, err, applog.FieldRecordID, id)
		}
	}

	reply := fmt.Sprintf("Logged: %s of %s for %s.", displayType(tx.Type), tx.Amount, tx.Category)
	if !tx.Type.IsIncome() && d.alertThreshold.Cents > 0 && tx.Amount.Cents > d.alertThreshold.Cents {
		reply += " " + msgHighExpense
	}
	if res.Alert != "" {
		reply += " " + res.Alert
	}
	return []Entry{newEntry(reply, SenderBot)}
}

func (d *Dispatcher) handleReset(ctx context.Context) []Entry {
	entries := []Entry{newEntry(msgResetting, SenderBot)}

	deleted, err := ledger.DeleteAll(ctx, d.store)
	if err != nil {
		slog.ErrorContext(ctx, "Reset failed", applog.FieldError, err, applog.FieldRecordCount, deleted)
		// No rollback of deletes that already succeeded; say so instead of
		// pretending all-or-nothing.
		msg := fmt.Sprintf("Reset incomplete: %v. Some records may remain.", err)
		return append(entries, newEntry(msg, SenderBot))
	}

	if d.events != nil {
		if err := d.events.PublishLedgerReset(ctx, deleted); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reset event", applog.FieldError, err)
		}
	}
	return append(entries, newEntry(msgResetDone, SenderBot))
}

func (d *Dispatcher) handleBudgetGoal(res classifier.Classification) []Entry {
	// Goals are acknowledged, remembered for insight, and never persisted.
	msg := fmt.Sprintf("I've noted your goal to %q.", res.OriginalText)
	if res.Amount.Cents > 0 {
		d.mu.Lock()
		d.goals = append(d.goals, Goal{Category: res.Category, Amount: res.Amount})
		d.mu.Unlock()
		msg += fmt.Sprintf(" I'll help you track your budget for %s (%s).", goalLabel(res.Category), res.Amount)
	}
	return []Entry{newEntry(msg, SenderBot)}
}

// Goals returns a copy of the noted budget goals.
func (d *Dispatcher) Goals() []Goal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Goal(nil), d.goals...)
}

func displayType(t core.TxType) string {
	if t.IsIncome() {
		return string(core.Income)
	}
	return string(core.Expense)
}

func goalLabel(category string) string {
	if category == "" {
		return "overall spending"
	}
	return category
}
