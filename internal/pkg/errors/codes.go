package errors

// Error code constants. Errors carry a code and optional field detail,
// never a hardcoded user-facing message baked into the pipeline.

// Filter compiler codes.
const (
	CodeInvalidTable         = "INVALID_TABLE"
	CodeInvalidColumn        = "INVALID_COLUMN"
	CodeUnsupportedOperator  = "UNSUPPORTED_OPERATOR"
	CodeInvalidOperatorData  = "INVALID_OPERATOR_DATA"
	CodeInvalidLimit         = "INVALID_LIMIT"
	CodeInvalidOffset        = "INVALID_OFFSET"
	CodeInvalidOrderColumn   = "INVALID_ORDER_COLUMN"
	CodeInvalidOrderDir      = "INVALID_ORDER_DIRECTION"
	CodeRegexFlagsRejected   = "REGEX_FLAGS_REJECTED"
)

// Record / write-plan codes.
const (
	CodeMissingID = "MISSING_ID"
)

// Preload / security codes.
const (
	CodeRecordNotFound  = "RECORD_NOT_FOUND"
	CodeRecordTrashed   = "RECORD_TRASHED"
	CodeAccessDenied    = "ACCESS_DENIED"
)

// Schema catalog codes.
const (
	CodeSchemaNotFound    = "SCHEMA_NOT_FOUND"
	CodeMalformedSchema   = "MALFORMED_SCHEMA"
)

// Validation codes.
const (
	CodeRequiredField = "REQUIRED_FIELD"
	CodeUnknownField  = "UNKNOWN_FIELD"
	CodeInvalidType   = "INVALID_TYPE"
)

// Store / system codes.
const (
	CodeStoreFailure       = "STORE_FAILURE"
	CodeNoOpenTransaction  = "NO_OPEN_TRANSACTION"
	CodeRingOutOfOrder     = "RING_OUT_OF_ORDER"
	CodePreloadMissed      = "PRELOAD_NOT_RUN"
	CodeObserverTimeout    = "OBSERVER_TIMEOUT"
	CodeObserverFailure    = "OBSERVER_FAILURE"
	CodeCancelled          = "CANCELLED"
)
