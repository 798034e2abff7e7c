package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"ledgerchat/internal/core"
	applog "ledgerchat/internal/log"
)

// HTTPClient calls the remote NLP service. Request and response shapes follow
// the service's /api/analyze contract: {"message": ...} in, a flat intent
// object out. Any status other than "success" is a classification failure.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type analyzeRequest struct {
	Message string `json:"message"`
}

type analyzeResponse struct {
	Status       string  `json:"status"`
	Intent       string  `json:"intent"`
	OriginalText string  `json:"original_text"`
	Amount       float64 `json:"amount"`
	Type         string  `json:"type"`
	Category     string  `json:"category"`
	QueryType    string  `json:"query_type"`
	Alert        string  `json:"alert"`
	Error        string  `json:"error"`
}

func (c *HTTPClient) Classify(ctx context.Context, message string) (Classification, error) {
	body, err := json.Marshal(analyzeRequest{Message: message})
	if err != nil {
		return Classification{}, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return Classification{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: call classifier: %v", ErrClassification, err)
	}
	defer resp.Body.Close()

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Classification{}, fmt.Errorf("%w: decode classifier response: %v", ErrClassification, err)
	}

	if resp.StatusCode != http.StatusOK || parsed.Status != "success" {
		slog.WarnContext(ctx, "Classifier rejected message",
			applog.FieldStatusCode, resp.StatusCode,
			"status", parsed.Status,
			"service_error", parsed.Error)
		return Classification{}, fmt.Errorf("%w: status %q", ErrClassification, parsed.Status)
	}

	out := Classification{
		Intent:       parsed.Intent,
		OriginalText: parsed.OriginalText,
		Amount:       core.Money{Cents: int64(math.Round(parsed.Amount * 100))},
		Type:         core.TxType(parsed.Type),
		Category:     parsed.Category,
		QueryType:    parsed.QueryType,
		Alert:        parsed.Alert,
	}
	if out.OriginalText == "" {
		out.OriginalText = message
	}
	return out, nil
}
