package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"
)

type (
	// TxType classifies a transaction as money in or money out. Any value
	// other than Income aggregates as an expense; records are never dropped
	// because of an unexpected type.
	TxType string

	Money struct {
		Cents int64
	}

	// Transaction is the sole persisted entity. Records are immutable after
	// creation; a correction is a new record, never an update.
	Transaction struct {
		ID           string
		OriginalText string // the user's raw utterance
		Amount       Money
		Type         TxType
		Category     string
		Timestamp    time.Time // store-assigned, not client clock
		Seq          int64     // store insertion order, tie-break for equal timestamps
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyText     = errors.New("empty original text")
)

// IsIncome reports whether the type counts toward income totals.
func (t TxType) IsIncome() bool {
	return t == Income
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (tx Transaction) Validate() error {
	if len(strings.TrimSpace(tx.OriginalText)) == 0 {
		return ErrEmptyText
	}
	if len(tx.OriginalText) > 500 {
		return errors.New("original text too long (max 500 characters)")
	}
	// A zero or negative amount is a classification failure, not a stored fact.
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
