package thumbcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wselector/wselector/internal/logging"
)

// tempPattern 是暂存文件的命名模板；点前缀使其对淘汰扫描不可见。
const tempPattern = ".thumb-*"

// DefaultTimeout 是未注入 http.Client 时的抓取超时。
const DefaultTimeout = 10 * time.Second

// Options 描述缓存的构造参数，Client/Logger 可选。
type Options struct {
	Dir      string
	MaxBytes int64
	Client   *http.Client
	Logger   *logrus.Logger
}

// Cache 将 (源 URL, 缓存目录) 映射为本地文件路径：首次访问抓取落盘，
// 命中时刷新访问时间，写入后触发淘汰扫描把目录压回预算之内。
type Cache struct {
	dir      string
	maxBytes int64
	client   *http.Client
	logger   *logrus.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock

	counters counters
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// New 构建缓存并立即创建缓存目录（0700，仅属主可读写）。
func New(opts Options) (*Cache, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache dir required")
	}
	if opts.MaxBytes <= 0 {
		return nil, fmt.Errorf("cache budget must be positive, got %d", opts.MaxBytes)
	}

	abs, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: abs, Err: err}
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Cache{
		dir:      abs,
		maxBytes: opts.MaxBytes,
		client:   client,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*entryLock),
	}, nil
}

// Dir 返回缓存目录的绝对路径。
func (c *Cache) Dir() string { return c.dir }

// Fetch 返回 rawURL 对应的本地文件路径：命中直接返回，未命中则抓取落盘。
// 网络失败返回 *FetchError，磁盘失败返回 *StorageError；两者都不会留下残片。
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", &FetchError{URL: rawURL, Err: errors.New("empty source url")}
	}

	key := Key(rawURL)
	finalPath := filepath.Join(c.dir, key)

	// 快路径：命中时只刷新访问时间，不碰锁表。
	if c.touch(finalPath) {
		c.counters.hits.Add(1)
		c.logger.WithFields(logging.FetchFields(rawURL, key, true)).Debug("thumbnail_hit")
		return finalPath, nil
	}

	unlock := c.lockEntry(key)
	defer unlock()

	// 排队期间赢家可能已经落盘，再查一次就地转为命中，省掉重复回源。
	if c.touch(finalPath) {
		c.counters.hits.Add(1)
		c.logger.WithFields(logging.FetchFields(rawURL, key, true)).Debug("thumbnail_hit")
		return finalPath, nil
	}

	c.counters.misses.Add(1)

	// 目录可能在运行期间被外部清掉，写前兜底重建。
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return "", &StorageError{Op: "mkdir", Path: c.dir, Err: err}
	}

	if err := c.download(ctx, rawURL, finalPath); err != nil {
		return "", err
	}

	c.logger.WithFields(logging.FetchFields(rawURL, key, false)).Debug("thumbnail_stored")
	c.Sweep()
	return finalPath, nil
}

// touch 判断条目是否存在，存在则把 mtime 刷到当前时间（LRU 时钟）。
func (c *Cache) touch(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	now := c.now()
	if err := os.Chtimes(path, now, now); err != nil {
		// 刷新失败不影响命中本身，只会让该条目更早被淘汰。
		c.logger.WithField("path", path).WithError(err).Debug("touch_failed")
	}
	return true
}

// download 执行回源 GET 并以临时文件 + rename 的方式原子落盘。
func (c *Cache) download(ctx context.Context, rawURL, finalPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &FetchError{URL: rawURL, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tempFile, err := os.CreateTemp(c.dir, tempPattern)
	if err != nil {
		return &StorageError{Op: "create temp", Path: c.dir, Err: err}
	}
	tempName := tempFile.Name()

	_, writeErr, readErr := copyBody(tempFile, resp.Body)
	closeErr := tempFile.Close()
	if writeErr == nil && readErr == nil {
		writeErr = closeErr
	}
	if readErr != nil {
		os.Remove(tempName)
		return &FetchError{URL: rawURL, Err: readErr}
	}
	if writeErr != nil {
		os.Remove(tempName)
		return &StorageError{Op: "write", Path: tempName, Err: writeErr}
	}

	if err := os.Rename(tempName, finalPath); err != nil {
		os.Remove(tempName)
		return &StorageError{Op: "rename", Path: finalPath, Err: err}
	}

	now := c.now()
	if err := os.Chtimes(finalPath, now, now); err != nil {
		c.logger.WithField("path", finalPath).WithError(err).Debug("stamp_failed")
	}
	return nil
}

// copyBody 区分读侧与写侧错误：读失败归为网络问题，写失败归为磁盘问题。
func copyBody(dst io.Writer, src io.Reader) (written int64, writeErr, readErr error) {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr, nil
			}
			if w < n {
				return written, io.ErrShortWrite, nil
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil, nil
			}
			return written, nil, rerr
		}
	}
}

// lockEntry 为 key 取得引用计数锁，避免同一条目并发回源。
func (c *Cache) lockEntry(key string) func() {
	c.mu.Lock()
	lock := c.locks[key]
	if lock == nil {
		lock = &entryLock{}
		c.locks[key] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}
