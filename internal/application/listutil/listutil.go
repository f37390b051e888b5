package listutil

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// BackendPage returns the 0-indexed page number the backend expects.
func (p PageParams) BackendPage() int {
	return p.Page - 1
}

// FilterParams carries search and filter parameters.
type FilterParams struct {
	Search  string            // free-text search query
	Filters map[string]string // exact-match filters (e.g. status=PAID)
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int // current page (1-indexed)
	PerPage    int // rows per page
	Total      int // total matching rows
	TotalPages int // ceil(Total / PerPage)
}

// ListParams combines all list view parameters.
type ListParams struct {
	PageParams
	FilterParams
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 10

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{7, 10, 20, 50, 100}

// ParsePageParams extracts page and per_page from URL query values.
// PRE: none
// POST: returns valid PageParams with defaults applied
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !isValidPerPage(perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// ParseFilterParams extracts search and named filters from URL query values.
// PRE: filterKeys lists the allowed filter parameter names
// POST: returns FilterParams with only recognised keys; Search is trimmed
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			fp.Filters[key] = v
		}
	}
	return fp
}

// ParseListParams parses all list parameters from URL query values.
func ParseListParams(q url.Values, filterKeys []string) ListParams {
	return ListParams{
		PageParams:   ParsePageParams(q),
		FilterParams: ParseFilterParams(q, filterKeys),
	}
}

// SearchKind says what a search box input looks like.
type SearchKind string

const (
	SearchNone      SearchKind = ""
	SearchStudentID SearchKind = "student_id"
	SearchName      SearchKind = "name"
)

// ClassifySearch treats input starting with a digit as a student id and anything else as a name.
// PRE: none
// POST: Returns SearchNone for blank input
func ClassifySearch(s string) SearchKind {
	s = strings.TrimSpace(s)
	if s == "" {
		return SearchNone
	}
	if unicode.IsDigit([]rune(s)[0]) {
		return SearchStudentID
	}
	return SearchName
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0, perPage > 0, page >= 1
// POST: returns PageInfo with TotalPages computed; Page clamped to valid range
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
// PRE: PageInfo is valid
// POST: Returns (Page-1) * PerPage
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number on the current page.
// PRE: PageInfo is valid
// POST: Returns 0 if Total is 0, otherwise Offset+1
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the current page.
// PRE: PageInfo is valid
// POST: Returns min(Offset+PerPage, Total)
func (p PageInfo) EndRow() int {
	end := p.Offset() + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return end
}

// HasPrev reports whether there is a page before this one.
func (p PageInfo) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether there is a page after this one.
func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages
}

// PageNumbers returns the page numbers to display in pagination controls.
// Shows at most 5 pages centered around the current page.
// PRE: PageInfo is valid
// POST: Returns slice of at most 5 page numbers centered on current page
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	start := p.Page - maxButtons/2
	if start < 1 {
		start = 1
	}
	end := start + maxButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = end - maxButtons + 1
		if start < 1 {
			start = 1
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination returns true if pagination controls should be displayed.
// PRE: PageInfo is valid
// POST: Returns true if Total > PerPage
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

func isValidPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
