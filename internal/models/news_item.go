package models

import "time"

// DefaultCategory is assigned to items whose feed supplies no category.
const DefaultCategory = "general"

// NewsItem is a normalized feed entry produced by the ingestion pipeline.
type NewsItem struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	SourceURL   string `json:"sourceUrl"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"publishedAt"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// PublishedTime parses PublishedAt. A malformed value yields the zero time.
func (n NewsItem) PublishedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, n.PublishedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
