package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client 访问目录搜索 API，整站复用一份实例与底层连接池。
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger
}

// NewClient 构造目录客户端；apiKey 可为空（匿名访问受限内容较少）。
func NewClient(baseURL, apiKey string, client *http.Client, logger *logrus.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("catalog base URL must be absolute, got %q", baseURL)
	}
	if client == nil {
		return nil, errors.New("http client required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}, nil
}

// Search 执行一次分页搜索并解析结果页。非 2xx 响应视为错误返回。
func (c *Client) Search(ctx context.Context, query Query) (*ResultPage, error) {
	query = query.normalize()

	params := url.Values{}
	if query.Term != "" {
		params.Set("q", query.Term)
	}
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("sorting", query.Sort)
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	endpoint := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog search: unexpected status %s", resp.Status)
	}

	var page ResultPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"action":  "catalog_search",
		"term":    query.Term,
		"page":    query.Page,
		"sort":    query.Sort,
		"results": len(page.Wallpapers),
	}).Debug("搜索完成")

	return &page, nil
}

// Wallpaper 按 id 查询单条结果（GET /w/<id>），供下载路径使用。
func (c *Client) Wallpaper(ctx context.Context, id string) (*Wallpaper, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("wallpaper id required")
	}

	endpoint := c.baseURL + "/w/" + url.PathEscape(id)
	if c.apiKey != "" {
		endpoint += "?apikey=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build wallpaper request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog wallpaper %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog wallpaper %s: unexpected status %s", id, resp.Status)
	}

	var payload struct {
		Data Wallpaper `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode wallpaper response: %w", err)
	}
	return &payload.Data, nil
}
