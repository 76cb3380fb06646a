// Package gallery merges backend-sourced generations with locally persisted
// inspirations, favorites, and folders into one consistent read model.
package gallery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"daygen/internal/domain"
	"daygen/internal/storage"
)

const (
	namespace    = "gallery"
	keyItems     = "items"
	keyFavorites = "favorites"
	keyFolders   = "folders"
)

var fold = cases.Fold()

// Store owns the per-instance gallery state. In-memory state is a cache of
// persisted storage: Load re-syncs on startup, and every mutation updates
// memory first and persists best-effort. A failed persist never fails the
// user-visible action.
type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	logger    zerolog.Logger
	items     []domain.GalleryItem
	favorites map[string]struct{}
	folders   []domain.Folder
	selection map[string]struct{}
}

// NewStore creates an empty store over the given persistence capability.
func NewStore(kv storage.KV, logger zerolog.Logger) *Store {
	return &Store{
		kv:        kv,
		logger:    logger,
		favorites: make(map[string]struct{}),
		selection: make(map[string]struct{}),
	}
}

// Load re-syncs in-memory state from persisted storage. Read failures are
// treated as "no persisted value".
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.GalleryItem
	if ok := s.read(ctx, keyItems, &items); ok {
		s.items = items
	}
	var favorites []string
	if ok := s.read(ctx, keyFavorites, &favorites); ok {
		s.favorites = make(map[string]struct{}, len(favorites))
		for _, url := range favorites {
			s.favorites[url] = struct{}{}
		}
	}
	var folders []domain.Folder
	if ok := s.read(ctx, keyFolders, &folders); ok {
		s.folders = folders
	}
}

func (s *Store) read(ctx context.Context, key string, out any) bool {
	ok, err := s.kv.Get(ctx, namespace, key, out)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("gallery: load failed, starting empty")
		return false
	}
	return ok
}

// MergeRemote reconciles backend-authoritative items with local state. The
// backend owns the user's generations; locally saved inspirations survive the
// merge.
func (s *Store) MergeRemote(ctx context.Context, remote []domain.GalleryItem) {
	s.mu.Lock()
	var kept []domain.GalleryItem
	for _, item := range s.items {
		if item.Saved() {
			kept = append(kept, item)
		}
	}
	seen := make(map[string]struct{}, len(remote))
	merged := make([]domain.GalleryItem, 0, len(remote)+len(kept))
	for _, item := range remote {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range kept {
		if _, ok := seen[item.URL]; !ok {
			merged = append(merged, item)
		}
	}
	s.items = merged
	s.mu.Unlock()

	s.persistItems(ctx)
}

// Add inserts (or replaces) one item, newest first.
func (s *Store) Add(ctx context.Context, item domain.GalleryItem) {
	s.mu.Lock()
	replaced := false
	for i := range s.items {
		if s.items[i].URL == item.URL {
			s.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append([]domain.GalleryItem{item}, s.items...)
	}
	s.mu.Unlock()

	s.persistItems(ctx)
}

// Items returns a copy of the current read model.
func (s *Store) Items() []domain.GalleryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GalleryItem, len(s.items))
	copy(out, s.items)
	return out
}

// Filter applies AND-composed facets to the current items.
func (s *Store) Filter(f Filters) []domain.GalleryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var folder *domain.Folder
	if f.Folder != "" && f.Folder != "all" {
		for i := range s.folders {
			if s.folders[i].ID == f.Folder {
				folder = &s.folders[i]
				break
			}
		}
	}
	return filterItems(s.items, s.favorites, folder, f)
}

// IsFavorite reports whether the item is in the favorites set.
func (s *Store) IsFavorite(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favorites[url]
	return ok
}

// ToggleFavorite flips the favorite flag and returns the new state. The
// in-memory update always happens, even when the background persist fails.
func (s *Store) ToggleFavorite(ctx context.Context, url string) bool {
	s.mu.Lock()
	_, was := s.favorites[url]
	if was {
		delete(s.favorites, url)
	} else {
		s.favorites[url] = struct{}{}
	}
	s.mu.Unlock()

	s.persistFavorites(ctx)
	return !was
}

// CreateFolder adds a folder. Names must be unique among existing folders
// under case folding.
func (s *Store) CreateFolder(ctx context.Context, name string) (domain.Folder, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return domain.Folder{}, fmt.Errorf("gallery: folder name is required")
	}

	s.mu.Lock()
	folded := fold.String(trimmed)
	for _, folder := range s.folders {
		if fold.String(folder.Name) == folded {
			s.mu.Unlock()
			return domain.Folder{}, fmt.Errorf("gallery: folder %q already exists", trimmed)
		}
	}
	folder := domain.Folder{
		ID:        uuid.NewString(),
		Name:      trimmed,
		CreatedAt: time.Now().UTC(),
	}
	s.folders = append(s.folders, folder)
	s.mu.Unlock()

	s.persistFolders(ctx)
	return folder, nil
}

// Folders returns a copy of the folder list.
func (s *Store) Folders() []domain.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Folder, len(s.folders))
	copy(out, s.folders)
	return out
}

// AddToFolder unions the urls into the folder's membership. It reports
// whether anything changed; a no-op does not hit persistence.
func (s *Store) AddToFolder(ctx context.Context, urls []string, folderID string) bool {
	s.mu.Lock()
	folder := s.folderByID(folderID)
	if folder == nil {
		s.mu.Unlock()
		return false
	}
	changed := false
	for _, url := range urls {
		if folder.Contains(url) {
			continue
		}
		if s.mediaTypeOf(url) == domain.MediaTypeVideo {
			folder.VideoIDs = append(folder.VideoIDs, url)
		} else {
			folder.ImageIDs = append(folder.ImageIDs, url)
		}
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.persistFolders(ctx)
	}
	return changed
}

// RemoveFromFolder subtracts the urls from the folder's membership. A no-op
// does not hit persistence.
func (s *Store) RemoveFromFolder(ctx context.Context, urls []string, folderID string) bool {
	s.mu.Lock()
	folder := s.folderByID(folderID)
	if folder == nil {
		s.mu.Unlock()
		return false
	}
	changed := false
	for _, url := range urls {
		if removed := removeString(&folder.ImageIDs, url); removed {
			changed = true
		}
		if removed := removeString(&folder.VideoIDs, url); removed {
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.persistFolders(ctx)
	}
	return changed
}

// Select marks an item as selected.
func (s *Store) Select(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection[url] = struct{}{}
}

// Deselect removes an item from the selection.
func (s *Store) Deselect(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selection, url)
}

// Selected reports whether an item is in the selection set.
func (s *Store) Selected(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selection[url]
	return ok
}

// Delete removes an item everywhere: the item list, the favorites set, every
// folder's membership, and the selection. The in-memory cascade happens under
// one lock so no caller observes a deleted item still favorited or foldered;
// the persistence writes that follow are best-effort.
func (s *Store) Delete(ctx context.Context, url string) {
	s.mu.Lock()
	for i, item := range s.items {
		if item.URL == url {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	delete(s.favorites, url)
	delete(s.selection, url)
	foldersChanged := false
	for i := range s.folders {
		if removeString(&s.folders[i].ImageIDs, url) {
			foldersChanged = true
		}
		if removeString(&s.folders[i].VideoIDs, url) {
			foldersChanged = true
		}
	}
	s.mu.Unlock()

	s.persistItems(ctx)
	s.persistFavorites(ctx)
	if foldersChanged {
		s.persistFolders(ctx)
	}
}

func (s *Store) folderByID(id string) *domain.Folder {
	for i := range s.folders {
		if s.folders[i].ID == id {
			return &s.folders[i]
		}
	}
	return nil
}

func (s *Store) mediaTypeOf(url string) domain.MediaType {
	for _, item := range s.items {
		if item.URL == url {
			return item.Type
		}
	}
	return domain.MediaTypeImage
}

func (s *Store) persistItems(ctx context.Context) {
	s.mu.Lock()
	items := make([]domain.GalleryItem, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()
	if err := s.kv.Set(ctx, namespace, keyItems, items); err != nil {
		s.logger.Warn().Err(err).Msg("gallery: persist items failed")
	}
}

func (s *Store) persistFavorites(ctx context.Context) {
	s.mu.Lock()
	favorites := make([]string, 0, len(s.favorites))
	for url := range s.favorites {
		favorites = append(favorites, url)
	}
	s.mu.Unlock()
	if err := s.kv.Set(ctx, namespace, keyFavorites, favorites); err != nil {
		s.logger.Warn().Err(err).Msg("gallery: persist favorites failed")
	}
}

func (s *Store) persistFolders(ctx context.Context) {
	s.mu.Lock()
	folders := make([]domain.Folder, len(s.folders))
	copy(folders, s.folders)
	s.mu.Unlock()
	if err := s.kv.Set(ctx, namespace, keyFolders, folders); err != nil {
		s.logger.Warn().Err(err).Msg("gallery: persist folders failed")
	}
}

func removeString(list *[]string, v string) bool {
	for i, s := range *list {
		if s == v {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
