package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Lister enumerates the member videos of a collection.
type Lister interface {
	// ListMembers returns the member video IDs of a collection. partial is
	// true when enumeration stopped early: either a later page failed or
	// the safety cap was reached.
	ListMembers(ctx context.Context, collectionID, credentials string) (ids []string, partial bool, err error)
}

type listingPage struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// ListMembers paginates the authenticated listing API. Anonymous
// enumeration is not a supported mode, so empty credentials fail
// immediately. A first-page error is fatal; a later-page error degrades to
// a partial result with everything enumerated so far. The safety cap bounds
// worst-case cost: hitting it mid-pagination stops early with whatever was
// collected, which is documented lossy behavior, not an error.
func (c *Client) ListMembers(ctx context.Context, collectionID, credentials string) ([]string, bool, error) {
	if credentials == "" {
		return nil, false, fmt.Errorf("list collection %s: %w", collectionID, ErrAuthRequired)
	}

	var ids []string
	cursor := ""
	for {
		u := fmt.Sprintf("%s/api/collections/%s/videos?limit=100",
			c.baseURL, url.PathEscape(collectionID))
		if cursor != "" {
			u += "&cursor=" + url.QueryEscape(cursor)
		}

		var page listingPage
		if err := c.getJSON(ctx, u, credentials, &page); err != nil {
			if len(ids) == 0 {
				return nil, false, fmt.Errorf("list collection %s: %w", collectionID, err)
			}
			slog.Warn("collection listing incomplete, continuing with partial result",
				"collection_id", collectionID, "enumerated", len(ids), "error", err)
			return ids, true, nil
		}

		for _, item := range page.Items {
			ids = append(ids, item.ID)
			if len(ids) >= c.maxMembers {
				slog.Warn("collection listing hit safety cap",
					"collection_id", collectionID, "cap", c.maxMembers)
				return ids, true, nil
			}
		}

		if !page.HasMore || page.NextCursor == "" {
			return ids, false, nil
		}
		cursor = page.NextCursor
	}
}

// Compile-time check that Client implements Lister.
var _ Lister = (*Client)(nil)
