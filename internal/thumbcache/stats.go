package thumbcache

import "sync/atomic"

// CacheStats 是缓存状态的显式快照，取代原型中的进程级全局计数器。
type CacheStats struct {
	Entries       int   `json:"entries"`
	TotalBytes    int64 `json:"total_bytes"`
	MaxBytes      int64 `json:"max_bytes"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Evictions     int64 `json:"evictions"`
	SweepFailures int64 `json:"sweep_failures"`
}

type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	sweepFailures atomic.Int64
}

// Stats 扫描磁盘得到条目数与总字节数，并附上进程内累计计数。
func (c *Cache) Stats() CacheStats {
	stats := CacheStats{
		MaxBytes:      c.maxBytes,
		Hits:          c.counters.hits.Load(),
		Misses:        c.counters.misses.Load(),
		Evictions:     c.counters.evictions.Load(),
		SweepFailures: c.counters.sweepFailures.Load(),
	}

	entries, total, err := scanDir(c.dir)
	if err != nil {
		return stats
	}
	stats.Entries = len(entries)
	stats.TotalBytes = total
	return stats
}
