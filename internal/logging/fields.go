package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供缩略图抓取日志的统一字段，供缓存与 CLI 复用。
func FetchFields(sourceURL, key string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"source_url": sourceURL,
		"cache_key":  key,
		"cache_hit":  cacheHit,
	}
}

// RequestFields 提供 HTTP facade 的访问日志字段。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
