package classifier

import (
	"context"
	"errors"

	"ledgerchat/internal/core"
)

// Intents a message can classify into.
const (
	IntentTransaction = "transaction"
	IntentQuery       = "query"
	IntentReset       = "reset"
	IntentBudgetGoal  = "budget_goal"
	IntentUnknown     = "unknown"
)

// Query subtypes.
const (
	QueryBalance        = "balance"
	QueryHighestExpense = "highest_expense"
	QueryReport         = "report"
	QueryInsight        = "insight"
)

// ErrClassification marks a failed classification. A transport failure and a
// service-reported failure are treated identically by callers.
var ErrClassification = errors.New("classification failed")

// Classification is the structured reading of one chat message.
type Classification struct {
	Intent       string
	OriginalText string
	Amount       core.Money
	Type         core.TxType
	Category     string
	QueryType    string
	Alert        string // optional service-side advisory, passed through verbatim
}

// Classifier maps free text to a typed intent. Implementations return an
// error wrapping ErrClassification when the message could not be read;
// callers must not mutate anything on that path.
type Classifier interface {
	Classify(ctx context.Context, message string) (Classification, error)
}
