// Package pagination normalizes page/limit input and describes a result page.
package pagination

import "math"

const DefaultPage = 1

type Options struct {
	DefaultLimit int
	MaxLimit     int
}

var (
	DefaultOpts  = Options{DefaultLimit: 10, MaxLimit: 100}
	TopListOpts  = Options{DefaultLimit: 5, MaxLimit: 50}
	AuditLogOpts = Options{DefaultLimit: 50, MaxLimit: 200}
)

type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit: non-positive values take the defaults and
// limit is capped at opt.MaxLimit.
func Normalize(page, limit int, opt Options) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = opt.DefaultLimit
	}
	if opt.MaxLimit > 0 && limit > opt.MaxLimit {
		limit = opt.MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one slice of a larger ordered result.
type Page[T any] struct {
	Items []T
	Total int64
	Params
}

func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Params: p}
}

func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(p.Total) / float64(p.Limit)))
}

func (p Page[T]) HasMore() bool {
	return int64(p.Offset()+len(p.Items)) < p.Total
}
