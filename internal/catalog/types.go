package catalog

import "strings"

// Thumbs 汇总同一张图的三档缩略图地址。
type Thumbs struct {
	Large    string `json:"large"`
	Original string `json:"original"`
	Small    string `json:"small"`
}

// Wallpaper 是一条目录搜索结果，Path 指向全分辨率原图。
type Wallpaper struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Path       string `json:"path"`
	Resolution string `json:"resolution"`
	FileSize   int64  `json:"file_size"`
	Category   string `json:"category"`
	Purity     string `json:"purity"`
	Thumbs     Thumbs `json:"thumbs"`
}

// ThumbnailURL 返回供网格展示的缩略图地址，优先小图，逐级回退到原图。
func (w Wallpaper) ThumbnailURL() string {
	for _, candidate := range []string{w.Thumbs.Small, w.Thumbs.Large, w.Thumbs.Original, w.Path} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// Meta 描述分页状态。
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
}

// ResultPage 是一页搜索结果。
type ResultPage struct {
	Wallpapers []Wallpaper `json:"data"`
	Meta       Meta        `json:"meta"`
}

// 排序模式与上游 API 的 sorting 参数一一对应。
const (
	SortRelevance = "relevance"
	SortDateAdded = "date_added"
	SortViews     = "views"
	SortFavorites = "favorites"
	SortToplist   = "toplist"
	SortRandom    = "random"
)

var validSorts = map[string]struct{}{
	SortRelevance: {},
	SortDateAdded: {},
	SortViews:     {},
	SortFavorites: {},
	SortToplist:   {},
	SortRandom:    {},
}

// Query 描述一次搜索请求；零值字段在 normalize 时回退到默认。
type Query struct {
	Term string
	Page int
	Sort string
}

// normalize 返回参数化前的规范 Query：页码至少为 1，排序回退 date_added。
func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	sort := strings.ToLower(strings.TrimSpace(q.Sort))
	if _, ok := validSorts[sort]; !ok {
		sort = SortDateAdded
	}
	q.Sort = sort
	return q
}
