package usage

import (
	"time"

	"github.com/google/uuid"
)

// Call is one network dispatch to the registry. Cache hits are not recorded.
type Call struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Operation   string    `json:"operation" db:"operation"`
	CacheKey    string    `json:"cache_key" db:"cache_key"`
	Method      string    `json:"method" db:"method"`
	Path        string    `json:"path" db:"path"`
	Success     bool      `json:"success" db:"success"`
	ErrorCode   string    `json:"error_code,omitempty" db:"error_code"`
	DurationMS  int64     `json:"duration_ms" db:"duration_ms"`
	RequestedAt time.Time `json:"requested_at" db:"requested_at"`
}

// CallFilter narrows ledger queries
type CallFilter struct {
	Operation *string    `json:"operation,omitempty" query:"operation"`
	Success   *bool      `json:"success,omitempty" query:"success"`
	StartTime *time.Time `json:"start_time,omitempty" query:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" query:"end_time"`
	Limit     int        `json:"limit" query:"limit"`
	Offset    int        `json:"offset" query:"offset"`
}

// OperationCount summarizes calls per operation.
type OperationCount struct {
	Operation string `json:"operation" db:"operation"`
	Calls     int    `json:"calls" db:"calls"`
	Failures  int    `json:"failures" db:"failures"`
}
