package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Senders of transcript entries.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Entry is one line of the chat transcript. The transcript is append-only;
// entries are never edited or removed.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

func newEntry(text, sender string) Entry {
	return Entry{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}
