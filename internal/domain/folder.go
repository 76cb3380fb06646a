package domain

import "time"

// Folder groups gallery items. Name uniqueness is enforced case-insensitively
// at creation time; membership slices hold de-duplicated item URLs.
type Folder struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"createdAt"`
	ImageIDs        []string  `json:"imageIds"`
	VideoIDs        []string  `json:"videoIds"`
	CustomThumbnail string    `json:"customThumbnail,omitempty"`
}

// Contains reports whether the folder holds the given item URL in either
// membership list.
func (f Folder) Contains(url string) bool {
	for _, id := range f.ImageIDs {
		if id == url {
			return true
		}
	}
	for _, id := range f.VideoIDs {
		if id == url {
			return true
		}
	}
	return false
}
