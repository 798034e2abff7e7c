package amqp

import (
	"encoding/json"
	"time"

	"ledgerchat/internal/core"
)

// Message kinds carried on the archive queue.
const (
	KindRecordAppended = "record_appended"
	KindLedgerReset    = "ledger_reset"
)

// Envelope wraps every archive event so the consumer can route by kind
// before decoding the payload.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RecordAppendedMessage mirrors one appended transaction to the archive.
// It carries the full record because the archive worker has no access to the
// document store.
type RecordAppendedMessage struct {
	ID           string      `json:"id"`
	OriginalText string      `json:"original_text"`
	AmountCents  int64       `json:"amount_cents"`
	Type         core.TxType `json:"type"`
	Category     string      `json:"category"`
	Timestamp    time.Time   `json:"timestamp"`
}

// LedgerResetMessage marks a bulk reset of the collection.
type LedgerResetMessage struct {
	Deleted   int       `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordAppendedMessage(id string, tx core.Transaction) *RecordAppendedMessage {
	return &RecordAppendedMessage{
		ID:           id,
		OriginalText: tx.OriginalText,
		AmountCents:  tx.Amount.Cents,
		Type:         tx.Type,
		Category:     tx.Category,
		Timestamp:    time.Now().UTC(),
	}
}

func NewLedgerResetMessage(deleted int) *LedgerResetMessage {
	return &LedgerResetMessage{
		Deleted:   deleted,
		Timestamp: time.Now().UTC(),
	}
}

func envelope(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	})
}

// EnvelopeFromJSON decodes the outer envelope; the payload stays raw for
// kind-specific decoding.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
