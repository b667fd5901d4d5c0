package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("WSELECTOR_CONFIG", "/tmp/env.json")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.json" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.json"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.json" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsModes(t *testing.T) {
	opts, err := parseCLIFlags([]string{"-search", "mountains", "-page", "3", "-sort", "views", "-prefetch"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.searchTerm != "mountains" || opts.page != 3 || opts.sort != "views" || !opts.prefetch {
		t.Fatalf("搜索参数解析错误: %+v", opts)
	}

	if _, err := parseCLIFlags([]string{"-bogus"}); err == nil {
		t.Fatalf("未知参数应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()
	path := configFixture(t, `{"CacheDir": "`+filepath.ToSlash(dir)+`/thumbs", "MaxCacheSizeMB": 10}`)
	code := run(cliOptions{configPath: path, checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	path := configFixture(t, `{"MaxCacheSizeMB": -5}`)
	code := run(cliOptions{configPath: path, checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "MaxCacheSizeMB") {
		t.Fatalf("错误输出应包含字段路径, got %q", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "wselector") {
		t.Fatalf("version 输出应包含 wselector 标识")
	}
}

func TestRunWithoutModeFails(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()
	path := configFixture(t, `{"CacheDir": "`+filepath.ToSlash(dir)+`/thumbs"}`)
	code := run(cliOptions{configPath: path})
	if code != 2 {
		t.Fatalf("缺少模式时应返回 2，得到 %d", code)
	}
}
