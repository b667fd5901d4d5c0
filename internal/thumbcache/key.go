package thumbcache

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Key 从源 URL 推导缓存键：取 URL path 的 basename；无法使用时回退到
// 全 URL 的 murmur3 哈希加固定 .jpg 扩展名。同一 URL 永远得到同一键。
func Key(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if name := path.Base(parsed.Path); usableName(name) {
			return name
		}
	}
	return hashedKey(rawURL)
}

func hashedKey(rawURL string) string {
	h1, h2 := murmur3.Sum128([]byte(rawURL))
	return fmt.Sprintf("thumb_%016x%016x.jpg", h1, h2)
}

// usableName 排除 path.Base 的各类退化输出，它们不能充当文件名。
// 点前缀的名字与暂存文件的命名空间冲突（淘汰扫描会跳过点前缀），
// 一并拒绝，统一走哈希回退。
func usableName(name string) bool {
	switch name {
	case "", ".", "..", "/":
		return false
	}
	return !strings.HasPrefix(name, ".")
}
