package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Recommendation defaults.
const (
	DefaultRecommendationLimit = 8
	maxRecommendationGenres    = 2 // one upstream call per genre
	perGenreResults            = 4

	DefaultReleaseLimit = 12
	DefaultGenre        = "fiction"
)

// Recommendations returns genre-matched suggestions, at most limit.
// Genres past the first two are ignored. A genre whose fetch fails is
// skipped; the call errors only when every genre fails.
func (c *Client) Recommendations(ctx context.Context, genres []string, limit int) ([]Recommendation, error) {
	if len(genres) == 0 {
		genres = []string{"fantasy", "fiction"}
	}
	if len(genres) > maxRecommendationGenres {
		genres = genres[:maxRecommendationGenres]
	}
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	var (
		recommendations []Recommendation
		failures        int
		firstErr        error
	)
	for _, genre := range genres {
		genre = strings.TrimSpace(genre)
		if genre == "" {
			continue
		}

		params := url.Values{}
		params.Set("q", "subject:"+genre)
		params.Set("orderBy", "relevance")
		params.Set("maxResults", fmt.Sprintf("%d", perGenreResults))
		params.Set("printType", "books")
		params.Set("langRestrict", "en")

		items, err := c.fetchVolumes(ctx, params)
		if err != nil {
			c.logger.Warn("recommendation fetch failed for genre", "genre", genre, "error", err)
			failures++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for i := range items {
			v := &items[i]
			info := &v.VolumeInfo
			recommendations = append(recommendations, Recommendation{
				ID:          v.ID,
				Title:       info.Title,
				Authors:     authorsOrUnknown(info.Authors),
				CoverImage:  fixCoverURL(info.ImageLinks.Thumbnail),
				Description: descriptionMarkdown(info.Description),
				Categories:  info.Categories,
				Rating:      info.AverageRating,
				MatchReason: "Based on your interest in " + genre,
			})
		}
	}

	if len(recommendations) == 0 && firstErr != nil {
		return nil, firstErr
	}

	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}

// NewReleases returns the newest books in a genre.
func (c *Client) NewReleases(ctx context.Context, genre string, limit int) ([]Release, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		genre = DefaultGenre
	}
	if limit <= 0 {
		limit = DefaultReleaseLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	params := url.Values{}
	params.Set("q", "subject:"+genre)
	params.Set("orderBy", "newest")
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	params.Set("printType", "books")
	params.Set("langRestrict", "en")

	items, err := c.fetchVolumes(ctx, params)
	if err != nil {
		return nil, err
	}

	releases := make([]Release, 0, len(items))
	for i := range items {
		v := &items[i]
		info := &v.VolumeInfo
		releases = append(releases, Release{
			ID:            v.ID,
			Title:         info.Title,
			Authors:       authorsOrUnknown(info.Authors),
			CoverImage:    fixCoverURL(info.ImageLinks.Thumbnail),
			PublishedDate: info.PublishedDate,
			Description:   descriptionMarkdown(info.Description),
			Categories:    info.Categories,
			Rating:        info.AverageRating,
			Link:          info.InfoLink,
		})
	}

	return releases, nil
}
