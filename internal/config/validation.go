package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 逐字段校验配置值，返回首个不合法字段的 FieldError。
func (c Config) Validate() error {
	if strings.TrimSpace(c.CacheDir) == "" {
		return newFieldError("CacheDir", "must not be empty")
	}
	if c.MaxCacheSizeMB <= 0 {
		return newFieldError("MaxCacheSizeMB", fmt.Sprintf("must be positive, got %d", c.MaxCacheSizeMB))
	}
	if strings.TrimSpace(c.DownloadDir) == "" {
		return newFieldError("DownloadDir", "must not be empty")
	}
	if c.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("FetchTimeout", "must be positive")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", fmt.Sprintf("must be within 1-65535, got %d", c.ListenPort))
	}

	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return newFieldError("APIBaseURL", fmt.Sprintf("must be an absolute URL, got %q", c.APIBaseURL))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return newFieldError("LogLevel", fmt.Sprintf("unknown level %q", c.LogLevel))
	}

	return nil
}
