package shared

// Page restricts a list query to one page of results.
// A zero PageSize means no pagination.
type Page struct {
	Number int
	Size   int
}

// MaxPageSize caps the page size accepted from clients
const MaxPageSize = 500

// Enabled reports whether pagination was requested
func (p Page) Enabled() bool {
	return p.Size > 0
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Size <= 0 {
		return Page{}
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Number < 1 {
		p.Number = 1
	}
	return p
}
