package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wselector/wselector/internal/catalog"
	"github.com/wselector/wselector/internal/config"
	"github.com/wselector/wselector/internal/download"
	"github.com/wselector/wselector/internal/logging"
	"github.com/wselector/wselector/internal/server"
	"github.com/wselector/wselector/internal/thumbcache"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	serve       bool
	searchTerm  string
	page        int
	sort        string
	prefetch    bool
	downloadID  string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_dir"] = cfg.CacheDir
		fields["max_cache_mb"] = cfg.MaxCacheSizeMB
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 共享一个 http.Client：缩略图与目录请求复用同一连接池和超时。
	httpClient := server.NewHTTPClient(cfg.FetchTimeout.DurationValue())

	cache, err := thumbcache.New(thumbcache.Options{
		Dir:      cfg.CacheDir,
		MaxBytes: cfg.MaxCacheBytes(),
		Client:   httpClient,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缩略图缓存失败: %v\n", err)
		return 1
	}

	catalogClient, err := catalog.NewClient(cfg.APIBaseURL, cfg.APIKey, httpClient, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化目录客户端失败: %v\n", err)
		return 1
	}

	switch {
	case opts.serve:
		return runServe(cfg, logger, catalogClient, cache, opts)
	case opts.downloadID != "":
		return runDownload(cfg, logger, catalogClient, httpClient, opts)
	case opts.searchTerm != "" || opts.prefetch:
		return runSearch(logger, catalogClient, cache, opts)
	default:
		fmt.Fprintln(stdErr, "nothing to do: pass -search, -prefetch, -download, -serve or -check-config")
		return 2
	}
}

// runSearch 输出一页搜索结果；-prefetch 时顺带把缩略图抓进缓存。
func runSearch(logger *logrus.Logger, catalogClient *catalog.Client, cache *thumbcache.Cache, opts cliOptions) int {
	ctx := context.Background()
	page, err := catalogClient.Search(ctx, catalog.Query{Term: opts.searchTerm, Page: opts.page, Sort: opts.sort})
	if err != nil {
		fmt.Fprintf(stdErr, "搜索失败: %v\n", err)
		return 1
	}

	for _, wp := range page.Wallpapers {
		if !opts.prefetch {
			fmt.Fprintf(stdOut, "%s\t%s\t%s\n", wp.ID, wp.Resolution, wp.URL)
			continue
		}

		path, err := cache.Fetch(ctx, wp.ThumbnailURL())
		if err != nil {
			// 单张失败降级为占位符，不中断整页预取。
			logger.WithError(err).WithField("id", wp.ID).Warn("thumbnail_prefetch_failed")
			fmt.Fprintf(stdOut, "%s\t%s\t-\n", wp.ID, wp.Resolution)
			continue
		}
		fmt.Fprintf(stdOut, "%s\t%s\t%s\n", wp.ID, wp.Resolution, path)
	}

	fmt.Fprintf(stdOut, "page %d/%d (%d total)\n", page.Meta.CurrentPage, page.Meta.LastPage, page.Meta.Total)
	return 0
}

// runDownload 按 id 拉取原图元数据并保存到下载目录。
func runDownload(cfg *config.Config, logger *logrus.Logger, catalogClient *catalog.Client, httpClient *http.Client, opts cliOptions) int {
	ctx := context.Background()

	wp, err := catalogClient.Wallpaper(ctx, opts.downloadID)
	if err != nil {
		fmt.Fprintf(stdErr, "查询壁纸失败: %v\n", err)
		return 1
	}

	svc, err := download.NewService(cfg.DownloadDir, httpClient, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化下载目录失败: %v\n", err)
		return 1
	}

	path, err := svc.Save(ctx, *wp)
	if err != nil {
		fmt.Fprintf(stdErr, "下载失败: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdOut, path)
	return 0
}

// runServe 启动本地 HTTP facade，供外部 UI shell 消费。
func runServe(cfg *config.Config, logger *logrus.Logger, catalogClient *catalog.Client, cache *thumbcache.Cache, opts cliOptions) int {
	app, err := server.NewApp(server.AppOptions{
		Logger:  logger,
		Catalog: catalogClient,
		Thumbs:  cache,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建 HTTP 服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.ListenPort
	fields["cache_dir"] = cfg.CacheDir
	fields["max_cache_mb"] = cfg.MaxCacheSizeMB
	logger.WithFields(fields).Info("HTTP facade 启动")

	if err := app.Listen(fmt.Sprintf(":%d", cfg.ListenPort)); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("wselector", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts cliOptions
	var configFlag string

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ~/.config/wselector/config.json，可被 WSELECTOR_CONFIG 覆盖）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	fs.BoolVar(&opts.serve, "serve", false, "启动本地 HTTP facade")
	fs.StringVar(&opts.searchTerm, "search", "", "搜索词")
	fs.IntVar(&opts.page, "page", 1, "结果页码")
	fs.StringVar(&opts.sort, "sort", "", "排序方式（relevance/date_added/views/favorites/toplist/random）")
	fs.BoolVar(&opts.prefetch, "prefetch", false, "把当前结果页的缩略图预取进缓存")
	fs.StringVar(&opts.downloadID, "download", "", "按 id 下载全分辨率原图")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("WSELECTOR_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	opts.configPath = path

	return opts, nil
}
