package store

// SortKey names the field a page is ordered by.
type SortKey string

// SortOrder is the direction of a sort.
type SortOrder string

// Allowed sort keys and orders. Anything outside the allow-list falls
// back to the default rather than erroring.
const (
	SortByDate  SortKey = "date"
	SortByOrder SortKey = "order"

	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest selects a page of a sorted result set. Page and Limit are
// 1-based; the HTTP edge validates them and the stores trust them.
type PageRequest struct {
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Sort  SortKey   `json:"sort"`
	Order SortOrder `json:"order"`
}

// Normalize fills defaults and coerces out-of-allow-list sort parameters
// back to the defaults.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	switch r.Sort {
	case SortByDate, SortByOrder:
	default:
		r.Sort = SortByDate
	}
	switch r.Order {
	case SortAsc, SortDesc:
	default:
		r.Order = SortDesc
	}
	return r
}

// PageInfo describes a page's position within the full result set.
// TotalCount and TotalPages are computed over the full filtered set,
// independent of which page was requested.
type PageInfo struct {
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	CurrentPage     int  `json:"currentPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	NextPage        *int `json:"nextPage"`
	PreviousPage    *int `json:"previousPage"`
}

// Page is the paginated result envelope.
type Page[T any] struct {
	Results  []T      `json:"results"`
	PageInfo PageInfo `json:"pageInfo"`
}

// NewPageInfo computes the page metadata for a normalized request.
func NewPageInfo(totalCount int, r PageRequest) PageInfo {
	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + r.Limit - 1) / r.Limit
	}
	info := PageInfo{
		TotalCount:      totalCount,
		TotalPages:      totalPages,
		CurrentPage:     r.Page,
		HasNextPage:     r.Page < totalPages,
		HasPreviousPage: r.Page > 1,
	}
	if info.HasNextPage {
		next := r.Page + 1
		info.NextPage = &next
	}
	if info.HasPreviousPage {
		prev := r.Page - 1
		info.PreviousPage = &prev
	}
	return info
}

// NewPage wraps an already-sliced result list in the page envelope.
// Results is never nil so it marshals as [].
func NewPage[T any](results []T, totalCount int, r PageRequest) *Page[T] {
	if results == nil {
		results = []T{}
	}
	return &Page[T]{
		Results:  results,
		PageInfo: NewPageInfo(totalCount, r),
	}
}

// PageBounds returns the [start, end) slice bounds of the requested page
// within a full result set of the given size.
func PageBounds(totalCount int, r PageRequest) (int, int) {
	start := (r.Page - 1) * r.Limit
	if start >= totalCount {
		return totalCount, totalCount
	}
	end := start + r.Limit
	if end > totalCount {
		end = totalCount
	}
	return start, end
}

// SlicePage cuts the requested page out of the full sorted result set and
// wraps it in the envelope. Used by the in-process backend, which
// materializes the filtered set before slicing.
func SlicePage[T any](all []T, r PageRequest) *Page[T] {
	start, end := PageBounds(len(all), r)
	return NewPage(all[start:end], len(all), r)
}
