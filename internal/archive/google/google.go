// Package google archives ledger records as rows in a Google Sheets
// spreadsheet. One row per record: timestamp, type, category, amount in
// rupees, raw text. Reset markers are rows with a RESET tag.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ledgerchat/internal/archive"
	applog "ledgerchat/internal/log"
)

const timestampLayout = "2006-01-02 15:04:05"

type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv builds a Sheets client from the environment:
// LEDGERCHAT_SPREADSHEET_ID, LEDGERCHAT_SHEET_NAME, and either
// GOOGLE_CREDENTIALS_FILE or application default credentials.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := os.Getenv("LEDGERCHAT_SPREADSHEET_ID")
	if spreadsheetID == "" {
		return nil, fmt.Errorf("LEDGERCHAT_SPREADSHEET_ID not set")
	}
	sheetName := os.Getenv("LEDGERCHAT_SHEET_NAME")
	if sheetName == "" {
		sheetName = "Ledger"
	}

	var opts []option.ClientOption
	if credsFile := os.Getenv("GOOGLE_CREDENTIALS_FILE"); credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendEntry implements archive.Writer.
func (c *Client) AppendEntry(ctx context.Context, e archive.Entry) error {
	row := []interface{}{
		e.Timestamp.UTC().Format(timestampLayout),
		string(e.Type),
		e.Category,
		e.Amount.Rupees(),
		e.OriginalText,
		e.ID,
	}
	if err := c.appendRow(ctx, row); err != nil {
		return fmt.Errorf("append archive row: %w", err)
	}

	slog.InfoContext(ctx, "Record archived to sheet",
		applog.FieldRecordID, e.ID,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategory, e.Category)
	return nil
}

// MarkReset implements archive.Writer.
func (c *Client) MarkReset(ctx context.Context, deleted int, at time.Time) error {
	row := []interface{}{
		at.UTC().Format(timestampLayout),
		"RESET",
		"",
		0,
		fmt.Sprintf("ledger reset, %d records deleted", deleted),
		"",
	}
	if err := c.appendRow(ctx, row); err != nil {
		return fmt.Errorf("append reset marker: %w", err)
	}
	return nil
}

func (c *Client) appendRow(ctx context.Context, row []interface{}) error {
	rangeRef := fmt.Sprintf("%s!A:F", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rangeRef, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
