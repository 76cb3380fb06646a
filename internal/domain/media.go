package domain

import "time"

// MediaType distinguishes image and video generations.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// GalleryItem is one generated image or video owned by the gallery store.
// Provider-specific extras (seed, resolution, negative prompt) are additive
// and live in Extra; the shared contract never requires them.
type GalleryItem struct {
	URL        string         `json:"url"`
	Type       MediaType      `json:"type"`
	Prompt     string         `json:"prompt"`
	Model      string         `json:"model"`
	Timestamp  time.Time      `json:"timestamp"`
	OwnerID    string         `json:"ownerId,omitempty"`
	AvatarID   string         `json:"avatarId,omitempty"`
	References []string       `json:"references,omitempty"`
	IsPublic   bool           `json:"isPublic,omitempty"`
	SavedFrom  string         `json:"savedFrom,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Saved reports whether the item is an inspiration saved from another user's
// public content rather than one of the user's own generations.
func (i GalleryItem) Saved() bool {
	return i.SavedFrom != ""
}
