package ui

import "sync/atomic"

// Stats accumulates run totals across worker goroutines.
type Stats struct {
	Fetched    atomic.Int64
	Skipped    atomic.Int64
	Failed     atomic.Int64
	Converted  atomic.Int64
	TotalBytes atomic.Int64
}
