package ports

import "time"

// GatewayObserver receives gateway events for metrics. Implementations must
// be cheap and safe for concurrent use.
type GatewayObserver interface {
	CacheLookup(operation string, hit bool)
	UpstreamCall(operation, code string, elapsed time.Duration)
	BulkJobObserved(status string)
}
