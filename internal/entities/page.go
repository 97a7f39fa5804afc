package entities

// Page is the single validated pagination value used across list operations.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// NewPage clamps raw pagination input to sane bounds once, so repositories
// never see a negative offset or an unbounded limit.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}

// Pagination is the list-response envelope.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page Page, total int) Pagination {
	pages := total / page.Size
	if total%page.Size != 0 {
		pages++
	}
	return Pagination{Page: page.Number, Limit: page.Size, Total: total, Pages: pages}
}
