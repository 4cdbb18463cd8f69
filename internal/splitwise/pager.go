package splitwise

import "context"

// DefaultPageSize is how many expenses each page request asks for.
const DefaultPageSize = 20

// ExpensePager walks a group's expenses page by page using an offset
// cursor. The cursor is advanced only by Next, so pages must be consumed
// sequentially; a fresh pager restarts from any offset.
type ExpensePager struct {
	client   *Client
	groupID  int64
	pageSize int
	offset   int
	done     bool
}

// NewExpensePager creates a pager over one group's expenses starting at
// offset zero. A non-positive pageSize falls back to DefaultPageSize.
func NewExpensePager(client *Client, groupID int64, pageSize int) *ExpensePager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ExpensePager{
		client:   client,
		groupID:  groupID,
		pageSize: pageSize,
	}
}

// Next fetches the next page. A page shorter than the page size marks the
// end of the sequence; subsequent calls return an empty page. A fetch error
// leaves the cursor in place so the same page can be retried.
func (p *ExpensePager) Next(ctx context.Context) ([]Expense, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.client.GetExpenses(ctx, p.groupID, p.pageSize, p.offset)
	if err != nil {
		return nil, err
	}

	p.offset += len(page)
	if len(page) < p.pageSize {
		p.done = true
	}
	return page, nil
}

// Done reports whether the final page has been consumed.
func (p *ExpensePager) Done() bool {
	return p.done
}

// Offset returns the current cursor position, useful for logging partial
// imports and for restarting after a failure.
func (p *ExpensePager) Offset() int {
	return p.offset
}
