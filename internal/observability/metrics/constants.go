package metrics

import "time"

// Label values for the batch kind
const (
	LabelFull    = "full"
	LabelPartial = "partial"
)

// Histogram bucket configuration
const (
	BucketStart1ms  = 0.001
	BucketStart10ms = 0.01
	BucketStart64B  = 64.0
	BucketFactor2   = 2
	BucketCount10   = 10
	BucketCount15   = 15
)

// ShutdownTimeout is the timeout for graceful shutdown of the metrics server
const ShutdownTimeout = 5 * time.Second
