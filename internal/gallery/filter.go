package gallery

import (
	"daygen/internal/domain"
)

// Origin filters items by where they came from.
const (
	OriginMine  = "mine"
	OriginSaved = "saved"
)

// Filters compose by logical AND across independent facets. Every facet
// defaults to "no constraint" when left empty or set to "all".
type Filters struct {
	Liked   bool
	Public  bool
	Models  []string
	Folder  string
	Origins []string
	Avatar  string
	Types   []domain.MediaType
}

// filterItems is the pure filtering core. favorites and folder supply the
// context the facets need; a nil folder means the folder facet matched
// nothing and yields an empty result when the facet is constrained.
func filterItems(items []domain.GalleryItem, favorites map[string]struct{}, folder *domain.Folder, f Filters) []domain.GalleryItem {
	folderConstrained := f.Folder != "" && f.Folder != "all"
	var out []domain.GalleryItem
	for _, item := range items {
		if f.Liked {
			if _, ok := favorites[item.URL]; !ok {
				continue
			}
		}
		if f.Public && !item.IsPublic {
			continue
		}
		if len(f.Models) > 0 && !containsString(f.Models, item.Model) {
			continue
		}
		if folderConstrained {
			if folder == nil || !folder.Contains(item.URL) {
				continue
			}
		}
		if len(f.Origins) > 0 && !matchesOrigin(f.Origins, item) {
			continue
		}
		if f.Avatar != "" && f.Avatar != "all" && item.AvatarID != f.Avatar {
			continue
		}
		if len(f.Types) > 0 && !containsType(f.Types, item.Type) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesOrigin(origins []string, item domain.GalleryItem) bool {
	for _, origin := range origins {
		switch origin {
		case OriginMine:
			if !item.Saved() {
				return true
			}
		case OriginSaved:
			if item.Saved() {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(list []domain.MediaType, v domain.MediaType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}
