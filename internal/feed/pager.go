package feed

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
)

// State is the fetch state of a Pager.
type State int

const (
	Idle State = iota
	FetchingFirstPage
	FetchingNextPage
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingFirstPage:
		return "fetching_first_page"
	case FetchingNextPage:
		return "fetching_next_page"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of a Pager's browsing state.
type Snapshot struct {
	Items        []RemoteProduct `json:"items"`
	PageNumber   int             `json:"page_number"`
	Exhausted    bool            `json:"exhausted"`
	Fetching     bool            `json:"fetching"`
	FetchingMore bool            `json:"fetching_more"`
	State        string          `json:"state"`
}

// Pager accumulates listing pages for one browsing session. At most one page request is
// outstanding at a time, so pages are appended strictly in increasing page order.
type Pager struct {
	client   Client
	pageSize int
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	items      []RemoteProduct
	pageNumber int
	// pending holds ids hidden from the list while their remote delete is in flight
	pending map[int]struct{}
}

func NewPager(client Client, pageSize int, logger *slog.Logger) *Pager {
	return &Pager{
		client:     client,
		pageSize:   pageSize,
		logger:     logger.With("component", "pager"),
		pageNumber: 1,
		pending:    make(map[int]struct{}),
	}
}

// LoadFirst requests page 1 and replaces the items with it. It only runs from Idle and
// reports whether a request was issued. On failure the items are left as they were.
func (p *Pager) LoadFirst(ctx context.Context) (bool, error) {
	return p.loadFirst(ctx, Idle)
}

// Refresh is LoadFirst that also restarts an exhausted session. The items and page number
// are replaced only once page 1 has arrived; on failure the previous state is kept as is.
func (p *Pager) Refresh(ctx context.Context) (bool, error) {
	return p.loadFirst(ctx, Idle, Exhausted)
}

func (p *Pager) loadFirst(ctx context.Context, from ...State) (bool, error) {
	p.mu.Lock()
	if !slices.Contains(from, p.state) {
		p.mu.Unlock()
		return false, nil
	}
	previous := p.state
	p.state = FetchingFirstPage
	p.mu.Unlock()

	page, err := p.client.FetchPage(ctx, p.pageSize, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = previous
		p.logger.ErrorContext(ctx, "failed to load first page", "error", err)
		return true, err
	}
	p.items = appendUnique(nil, page)
	p.pageNumber = 1
	p.advance(len(page))
	return true, nil
}

// LoadMore appends the next page. A call while a request is outstanding, or once the feed
// is exhausted, is dropped and reports false.
func (p *Pager) LoadMore(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return false, nil
	}
	p.state = FetchingNextPage
	pageNumber := p.pageNumber
	p.mu.Unlock()

	page, err := p.client.FetchPage(ctx, p.pageSize, pageNumber)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = Idle
		p.logger.ErrorContext(ctx, "failed to load page", "page", pageNumber, "error", err)
		return true, err
	}
	p.items = appendUnique(p.items, page)
	p.advance(len(page))
	return true, nil
}

// advance moves past a page of count items. Must be called with mu held.
func (p *Pager) advance(count int) {
	if count > 0 {
		p.pageNumber++
	}
	if count < p.pageSize {
		p.state = Exhausted
		return
	}
	p.state = Idle
}

// Delete hides the item while the remote delete runs. The item is dropped on success and
// shown again on failure, in which case the remote error is returned. Unlike a purely
// optimistic list, a failed remote delete never leaves the item silently missing.
func (p *Pager) Delete(ctx context.Context, id int) error {
	p.mu.Lock()
	if _, ok := p.pending[id]; ok {
		p.mu.Unlock()
		return nil
	}
	if p.indexOf(id) < 0 {
		p.mu.Unlock()
		return catalogerrors.ErrProductNotFound
	}
	p.pending[id] = struct{}{}
	p.mu.Unlock()

	err := p.client.Delete(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, id)
	if err != nil {
		p.logger.ErrorContext(ctx, "remote delete failed, item restored", "id", id, "error", err)
		return err
	}
	if i := p.indexOf(id); i >= 0 {
		p.items = slices.Delete(p.items, i, i+1)
	}
	return nil
}

// Snapshot returns the visible items and flags. Items with a pending delete are hidden.
func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	visible := make([]RemoteProduct, 0, len(p.items))
	for _, item := range p.items {
		if _, hidden := p.pending[item.ID]; !hidden {
			visible = append(visible, item)
		}
	}
	return Snapshot{
		Items:        visible,
		PageNumber:   p.pageNumber,
		Exhausted:    p.state == Exhausted,
		Fetching:     p.state == FetchingFirstPage,
		FetchingMore: p.state == FetchingNextPage,
		State:        p.state.String(),
	}
}

// Items returns the visible items.
func (p *Pager) Items() []RemoteProduct {
	return p.Snapshot().Items
}

func (p *Pager) indexOf(id int) int {
	return slices.IndexFunc(p.items, func(item RemoteProduct) bool { return item.ID == id })
}

// appendUnique appends the page items whose id is not listed yet.
func appendUnique(items []RemoteProduct, page []RemoteProduct) []RemoteProduct {
	seen := make(map[int]struct{}, len(items)+len(page))
	for _, item := range items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range page {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items
}
