package square

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/eshaffer321/preorder-gather/internal/domain/order"
)

// SearchOptions narrows an order search.
type SearchOptions struct {
	LocationIDs []string
	States      []string
	StartAt     time.Time

	// FollowCursor fetches every page until the cursor is exhausted or
	// MaxPages is reached. When false only the first page is read.
	FollowCursor bool
	MaxPages     int
	Limit        int
}

// SearchResult is the outcome of a (possibly multi-page) search.
type SearchResult struct {
	Orders []*order.Order
	Pages  int
	// Cursor is non-empty when more pages remain unread.
	Cursor string
}

type searchRequest struct {
	LocationIDs []string     `json:"location_ids"`
	Query       *searchQuery `json:"query,omitempty"`
	Cursor      string       `json:"cursor,omitempty"`
	Limit       int          `json:"limit,omitempty"`
}

type searchQuery struct {
	Filter searchFilter `json:"filter"`
	Sort   *searchSort  `json:"sort,omitempty"`
}

type searchFilter struct {
	DateTimeFilter *dateTimeFilter `json:"date_time_filter,omitempty"`
	StateFilter    *stateFilter    `json:"state_filter,omitempty"`
}

type dateTimeFilter struct {
	CreatedAt timeRange `json:"created_at"`
}

type timeRange struct {
	StartAt string `json:"start_at,omitempty"`
	EndAt   string `json:"end_at,omitempty"`
}

type stateFilter struct {
	States []string `json:"states"`
}

type searchSort struct {
	SortField string `json:"sort_field"`
	SortOrder string `json:"sort_order"`
}

type searchResponse struct {
	Orders []*order.Order `json:"orders"`
	Cursor string         `json:"cursor"`
}

// SearchOrders runs the order search. Pages are returned in API order.
func (c *Client) SearchOrders(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	if len(opts.LocationIDs) == 0 {
		return nil, fmt.Errorf("search orders: at least one location id is required")
	}

	req := searchRequest{
		LocationIDs: opts.LocationIDs,
		Limit:       opts.Limit,
		Query: &searchQuery{
			Filter: searchFilter{
				DateTimeFilter: &dateTimeFilter{CreatedAt: timeRange{StartAt: opts.StartAt.UTC().Format(time.RFC3339)}},
			},
			// created_at filters require sorting on the same field.
			Sort: &searchSort{SortField: "CREATED_AT", SortOrder: "ASC"},
		},
	}
	if len(opts.States) > 0 {
		req.Query.Filter.StateFilter = &stateFilter{States: opts.States}
	}

	result := &SearchResult{}
	for {
		var resp searchResponse
		if err := c.do(ctx, http.MethodPost, "/orders/search", req, &resp); err != nil {
			return nil, fmt.Errorf("search orders page %d: %w", result.Pages+1, err)
		}
		result.Pages++
		result.Orders = append(result.Orders, resp.Orders...)
		result.Cursor = resp.Cursor

		c.logger.Debug("Fetched order page", "page", result.Pages, "orders", len(resp.Orders), "has_more", resp.Cursor != "")

		if resp.Cursor == "" || !opts.FollowCursor {
			break
		}
		if opts.MaxPages > 0 && result.Pages >= opts.MaxPages {
			c.logger.Warn("Stopped paging at max pages, results are incomplete", "max_pages", opts.MaxPages)
			break
		}
		req.Cursor = resp.Cursor
	}

	return result, nil
}
