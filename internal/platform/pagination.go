package platform

import "context"

// PageFunc fetches one page of records and the remote total item count
type PageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, int, error)

// Paginator walks a paginated list endpoint lazily. The sequence is
// finite: it terminates when a page comes back short or empty.
type Paginator[T any] struct {
	fetch   PageFunc[T]
	perPage int
	page    int
	total   int
	done    bool
}

// NewPaginator creates a paginator starting at the given page (1-based)
func NewPaginator[T any](fetch PageFunc[T], startPage, perPage int) *Paginator[T] {
	if startPage < 1 {
		startPage = 1
	}
	return &Paginator[T]{
		fetch:   fetch,
		perPage: perPage,
		page:    startPage,
	}
}

// Next returns the next page of items. ok is false once the sequence is
// exhausted; items may be non-empty on the final page.
func (p *Paginator[T]) Next(ctx context.Context) (items []T, ok bool, err error) {
	if p.done {
		return nil, false, nil
	}

	items, total, err := p.fetch(ctx, p.page, p.perPage)
	if err != nil {
		return nil, false, err
	}
	p.total = total

	if len(items) == 0 {
		p.done = true
		return nil, false, nil
	}

	p.page++
	if len(items) < p.perPage {
		p.done = true
	}
	return items, true, nil
}

// Page returns the page number the next call to Next will fetch
func (p *Paginator[T]) Page() int {
	return p.page
}

// TotalItems returns the remote total count reported by the last page fetch
func (p *Paginator[T]) TotalItems() int {
	return p.total
}

// TotalPages derives the page count from the last reported total
func (p *Paginator[T]) TotalPages() int {
	if p.perPage <= 0 || p.total <= 0 {
		return 0
	}
	return (p.total + p.perPage - 1) / p.perPage
}
