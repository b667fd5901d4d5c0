package thumbcache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// evictTargetRatio 是滞后带下限：一旦超出预算就删到 90%，避免每次写入都触发扫描。
const evictTargetRatio = 0.9

type fileEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// Sweep 执行 LRU 淘汰：总量超出预算时按 mtime 从旧到新删除，直到压回
// 预算的 90%。单个文件删除失败只跳过不中断；整个过程永不向调用方报错。
func (c *Cache) Sweep() {
	entries, total, err := scanDir(c.dir)
	if err != nil {
		// 目录不存在视为空缓存，其余枚举错误只记日志。
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.WithField("dir", c.dir).WithError(err).Warn("sweep_scan_failed")
		}
		return
	}

	if total <= c.maxBytes {
		return
	}

	target := int64(float64(c.maxBytes) * evictTargetRatio)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	// 最新条目永不被自己的写入触发的扫描删除：单个超预算文件原样保留。
	for _, entry := range entries[:len(entries)-1] {
		if total <= target {
			break
		}
		if err := os.Remove(entry.path); err != nil {
			c.counters.sweepFailures.Add(1)
			c.logger.WithField("path", entry.path).WithError(err).Debug("evict_remove_failed")
			continue
		}
		total -= entry.size
		c.counters.evictions.Add(1)
	}

	if total > c.maxBytes {
		c.logger.WithFields(logrus.Fields{
			"dir":         c.dir,
			"total_bytes": total,
			"max_bytes":   c.maxBytes,
		}).Warn("eviction_incomplete")
	}
}

// scanDir 平铺枚举缓存目录下的常规文件，跳过子目录与点前缀的暂存文件。
func scanDir(dir string) ([]fileEntry, int64, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var (
		entries []fileEntry
		total   int64
	)
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// 条目在枚举与 stat 之间消失，跳过即可。
			continue
		}
		entries = append(entries, fileEntry{
			path:    filepath.Join(dir, name),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	return entries, total, nil
}
