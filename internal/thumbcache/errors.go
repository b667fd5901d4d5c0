package thumbcache

import "fmt"

// FetchError 表示网络侧失败（请求错误、超时、非 2xx、传输中断）。
// 是否重试由调用方决定，缓存自身从不重试。
type FetchError struct {
	URL        string
	StatusCode int // 0 表示请求未得到响应
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError 表示文件系统侧失败（建目录、写入、重命名），通常需要人工干预。
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
