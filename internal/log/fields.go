package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldIntent      = "intent"
	FieldQueryType   = "query_type"
	FieldAmountCents = "amount_cents"
	FieldTxType      = "tx_type"
	FieldCategory    = "category"
	FieldRecordID    = "record_id"
	FieldRecordCount = "record_count"
	FieldBackend     = "backend"
)

// Components tagged onto every log line by the binaries.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
