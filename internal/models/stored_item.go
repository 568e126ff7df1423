package models

import "time"

// StoredItem is a news item as persisted, keyed by the hash of its source URL.
type StoredItem struct {
	Key         string    `json:"key" db:"item_key"`
	Title       string    `json:"title" db:"title"`
	SourceURL   string    `json:"sourceUrl" db:"source_url"`
	Category    string    `json:"category" db:"category"`
	Summary     string    `json:"summary" db:"summary"`
	ImageURL    string    `json:"imageUrl,omitempty" db:"image_url"`
	PublishedAt time.Time `json:"publishedAt" db:"published_at"`
	TLDR        string    `json:"tldr,omitempty" db:"tldr"`
	AudioURL    string    `json:"audioUrl,omitempty" db:"audio_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// UserItemState holds the per-user flags for a stored item.
type UserItemState struct {
	UserID           string    `json:"userId" db:"user_id"`
	Key              string    `json:"key" db:"item_key"`
	Bookmarked       bool      `json:"bookmarked" db:"bookmarked"`
	InPlaylist       bool      `json:"inPlaylist" db:"in_playlist"`
	PlaylistPosition int       `json:"playlistPosition" db:"playlist_position"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// UserItem joins a stored item with the caller's flags for it.
type UserItem struct {
	StoredItem
	Bookmarked       bool `json:"bookmarked" db:"bookmarked"`
	InPlaylist       bool `json:"inPlaylist" db:"in_playlist"`
	PlaylistPosition int  `json:"playlistPosition" db:"playlist_position"`
}

// Summary is an AI-generated TLDR.
type Summary struct {
	Text      string    `json:"text"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"createdAt"`
}
