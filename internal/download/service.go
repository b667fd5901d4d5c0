package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/wselector/wselector/internal/catalog"
)

// Service 将全分辨率原图保存到下载目录。下载目录不受缓存预算约束，
// 也永远不会被淘汰扫描触碰。
type Service struct {
	dir    string
	client *http.Client
	logger *logrus.Logger
}

// NewService 构造下载服务并确保目录存在。
func NewService(dir string, client *http.Client, logger *logrus.Logger) (*Service, error) {
	if dir == "" {
		return nil, errors.New("download dir required")
	}
	if client == nil {
		return nil, errors.New("http client required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	return &Service{dir: abs, client: client, logger: logger}, nil
}

// Dir 返回下载目录的绝对路径。
func (s *Service) Dir() string { return s.dir }

// Save 下载 wp 的原图并返回落盘路径。与缓存相同的临时文件 + rename 纪律：
// 任何失败都不会留下半成品。
func (s *Service) Save(ctx context.Context, wp catalog.Wallpaper) (string, error) {
	if wp.Path == "" {
		return "", fmt.Errorf("wallpaper %s has no full-resolution url", wp.ID)
	}

	finalPath := filepath.Join(s.dir, fileName(wp))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wp.Path, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", wp.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download %s: unexpected status %s", wp.Path, resp.Status)
	}

	tempFile, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempName := tempFile.Name()

	_, copyErr := io.Copy(tempFile, resp.Body)
	closeErr := tempFile.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("write %s: %w", finalPath, copyErr)
	}

	if err := os.Rename(tempName, finalPath); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("finalize %s: %w", finalPath, err)
	}

	s.logger.WithFields(logrus.Fields{
		"action": "wallpaper_saved",
		"id":     wp.ID,
		"path":   finalPath,
	}).Info("原图已保存")

	return finalPath, nil
}

// fileName 以 <id><扩展名> 命名，扩展名取自原图 URL，缺省 .jpg。
func fileName(wp catalog.Wallpaper) string {
	ext := ".jpg"
	if parsed, err := url.Parse(wp.Path); err == nil {
		if e := path.Ext(parsed.Path); e != "" {
			ext = e
		}
	}
	return wp.ID + ext
}
