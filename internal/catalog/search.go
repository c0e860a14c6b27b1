package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 40 // Google Books maxResults cap
)

// Search queries the catalog for books matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	params.Set("printType", "books")
	params.Set("langRestrict", "en")

	items, err := c.fetchVolumes(ctx, params)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(items))
	for i := range items {
		v := &items[i]
		info := &v.VolumeInfo

		results = append(results, SearchResult{
			ID:            v.ID,
			Title:         info.Title,
			Authors:       authorsOrUnknown(info.Authors),
			CoverImage:    fixCoverURL(info.ImageLinks.Thumbnail),
			PublishedDate: info.PublishedDate,
			Description:   descriptionMarkdown(info.Description),
			Categories:    info.Categories,
			Rating:        info.AverageRating,
			PageCount:     info.PageCount,
			ISBN:          firstISBN(info.IndustryIdentifiers),
			Publisher:     info.Publisher,
		})
	}

	c.logger.Debug("catalog search", "query", query, "count", len(results))
	return results, nil
}

// firstISBN returns the first industry identifier, preferring whatever
// the catalog lists first.
func firstISBN(ids []industryIdentifier) string {
	for _, id := range ids {
		if id.Identifier != "" {
			return id.Identifier
		}
	}
	return ""
}
