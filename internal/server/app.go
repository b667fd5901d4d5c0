package server

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wselector/wselector/internal/catalog"
	"github.com/wselector/wselector/internal/logging"
	"github.com/wselector/wselector/internal/thumbcache"
	"github.com/wselector/wselector/internal/version"
)

// Searcher describes the catalog client the facade depends on. It allows
// injecting fake catalogs during tests.
type Searcher interface {
	Search(ctx context.Context, query catalog.Query) (*catalog.ResultPage, error)
}

// ThumbnailFetcher describes the cache the facade streams thumbnails from.
type ThumbnailFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
	Stats() thumbcache.CacheStats
}

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger  *logrus.Logger
	Catalog Searcher
	Thumbs  ThumbnailFetcher
}

const contextKeyRequestID = "_wselector_request_id"

// NewApp builds the Fiber application with request-ID middleware and the
// search/thumb/stats routes.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("catalog client is required")
	}
	if opts.Thumbs == nil {
		return nil, errors.New("thumbnail cache is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/api/search", handleSearch(opts))
	app.Get("/api/thumb", handleThumb(opts))
	app.Get("/-/stats", handleStats(opts))

	return app, nil
}

// requestIDMiddleware 为每个请求生成 UUID，贯穿日志与响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID 读取当前请求的关联 ID，未设置时返回空串。
func RequestID(c fiber.Ctx) string {
	if v, ok := c.Locals(contextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func handleSearch(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		query := catalog.Query{
			Term: fiber.Query[string](c, "q"),
			Page: fiber.Query[int](c, "page", 1),
			Sort: fiber.Query[string](c, "sort"),
		}

		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		page, err := opts.Catalog.Search(ctx, query)
		if err != nil {
			opts.Logger.WithError(err).
				WithFields(logging.RequestFields(RequestID(c), c.Method(), c.Path(), fiber.StatusBadGateway)).
				Warn("search_failed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "search_failed"})
		}
		return c.JSON(page)
	}
}

func handleThumb(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		rawURL := fiber.Query[string](c, "url")
		parsed, err := url.Parse(rawURL)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
		}

		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		path, err := opts.Thumbs.Fetch(ctx, rawURL)
		if err != nil {
			status := fiber.StatusInternalServerError
			code := "storage_failed"
			var fetchErr *thumbcache.FetchError
			if errors.As(err, &fetchErr) {
				status = fiber.StatusBadGateway
				code = "fetch_failed"
			}
			opts.Logger.WithError(err).
				WithFields(logging.RequestFields(RequestID(c), c.Method(), c.Path(), status)).
				Warn("thumb_failed")
			return c.Status(status).JSON(fiber.Map{"error": code})
		}

		return c.SendFile(path)
	}
}

func handleStats(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cache":   opts.Thumbs.Stats(),
			"version": version.Full(),
		})
	}
}
