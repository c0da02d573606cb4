package redisx

import "time"

const (
	// Cache for GET /orders/{id}: order:{id} -> order JSON
	KeyOrder = "order:%d"

	// Cache for the low-stock report: report:low-stock -> products JSON
	KeyLowStockReport = "report:low-stock"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache  = 5 * time.Minute
	TTLReportCache = 1 * time.Minute
	TTLDedup       = 48 * time.Hour
)
