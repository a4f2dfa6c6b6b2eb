// internal/engine/batch/concurrency.go
package batch

import (
	"runtime"
)

// MaxWorkers caps site workers regardless of host size
const MaxWorkers = 32

// SiteWorkers returns how many site queues may run at once. Each worker is
// I/O bound and mostly waiting on its limiter, so up to 4x CPU is allowed.
func SiteWorkers(groups, requested int) int {
	if groups <= 0 {
		return 1
	}

	limit := requested
	if limit <= 0 {
		limit = runtime.NumCPU() * 4
	}
	if limit > MaxWorkers {
		limit = MaxWorkers
	}
	if limit > groups {
		limit = groups
	}
	return limit
}
