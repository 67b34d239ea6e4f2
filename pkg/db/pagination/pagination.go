// Package pagination carries shared paging types for list responses.
package pagination

// PageInfo reports the slice of a listing that was returned.
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

// Request captures page/page_size query parameters with sane bounds.
type Request struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps the request into usable values.
func (r Request) Normalize() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 50
	}
	if r.PageSize > 200 {
		r.PageSize = 200
	}
	return r
}

// Offset returns the row offset for the normalized request.
func (r Request) Offset() int {
	n := r.Normalize()
	return (n.Page - 1) * n.PageSize
}
