package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"daygen/internal/domain"
)

// memKV is an in-memory persistence fake that can be flipped into a failing
// mode and counts writes.
type memKV struct {
	mu     sync.Mutex
	values map[string][]byte
	writes int
	fail   bool
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string][]byte)}
}

func (m *memKV) Get(ctx context.Context, namespace, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errors.New("kv unavailable")
	}
	raw, ok := m.values[namespace+"/"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *memKV) Set(ctx context.Context, namespace, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.fail {
		return errors.New("kv unavailable")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[namespace+"/"+key] = raw
	return nil
}

func (m *memKV) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, namespace+"/"+key)
	return nil
}

func (m *memKV) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func newTestStore() (*Store, *memKV) {
	kv := newMemKV()
	return NewStore(kv, zerolog.Nop()), kv
}

func TestAddToFolderIsIdempotent(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	store.Add(ctx, domain.GalleryItem{URL: "img-1", Type: domain.MediaTypeImage})
	folder, err := store.CreateFolder(ctx, "Cats")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	if changed := store.AddToFolder(ctx, []string{"img-1"}, folder.ID); !changed {
		t.Fatalf("first add reported no change")
	}
	before := kv.writeCount()
	if changed := store.AddToFolder(ctx, []string{"img-1"}, folder.ID); changed {
		t.Fatalf("second add reported a change")
	}
	if kv.writeCount() != before {
		t.Fatalf("no-op add persisted anyway")
	}

	got := store.Folders()[0]
	count := 0
	for _, id := range got.ImageIDs {
		if id == "img-1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("img-1 appears %d times in folder, want exactly once", count)
	}
}

func TestRemoveFromFolderNoOpSkipsPersist(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	folder, _ := store.CreateFolder(ctx, "Empty")

	before := kv.writeCount()
	if changed := store.RemoveFromFolder(ctx, []string{"missing"}, folder.ID); changed {
		t.Fatalf("removal of absent url reported a change")
	}
	if kv.writeCount() != before {
		t.Fatalf("no-op removal persisted anyway")
	}
}

func TestCreateFolderRejectsCaseInsensitiveDuplicate(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	if _, err := store.CreateFolder(ctx, "Travel"); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if _, err := store.CreateFolder(ctx, "tRAVEL"); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if len(store.Folders()) != 1 {
		t.Fatalf("folders = %d, want 1", len(store.Folders()))
	}
}

func TestDeleteCascades(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	store.Add(ctx, domain.GalleryItem{URL: "img-1", Type: domain.MediaTypeImage})
	f1, _ := store.CreateFolder(ctx, "One")
	f2, _ := store.CreateFolder(ctx, "Two")
	store.AddToFolder(ctx, []string{"img-1"}, f1.ID)
	store.AddToFolder(ctx, []string{"img-1"}, f2.ID)
	store.ToggleFavorite(ctx, "img-1")
	store.Select("img-1")

	store.Delete(ctx, "img-1")

	// Single post-condition: the item is gone from every structure at once.
	gone := len(store.Items()) == 0 &&
		!store.IsFavorite("img-1") &&
		!store.Selected("img-1")
	for _, folder := range store.Folders() {
		gone = gone && !folder.Contains("img-1")
	}
	if !gone {
		t.Fatalf("delete cascade incomplete: items=%v favorite=%v selected=%v folders=%v",
			store.Items(), store.IsFavorite("img-1"), store.Selected("img-1"), store.Folders())
	}
}

func TestToggleFavoriteSurvivesPersistFailure(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	kv.fail = true

	if on := store.ToggleFavorite(ctx, "img-1"); !on {
		t.Fatalf("toggle = false, want favorite on")
	}
	if !store.IsFavorite("img-1") {
		t.Fatalf("in-memory favorite lost when persist failed")
	}
}

func TestLoadReSyncsFromPersistence(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	store.Add(ctx, domain.GalleryItem{URL: "img-1", Type: domain.MediaTypeImage, Model: "gemini"})
	store.ToggleFavorite(ctx, "img-1")
	folder, _ := store.CreateFolder(ctx, "Keepers")
	store.AddToFolder(ctx, []string{"img-1"}, folder.ID)

	// A fresh store over the same KV sees the same state.
	fresh := NewStore(kv, zerolog.Nop())
	fresh.Load(ctx)

	if len(fresh.Items()) != 1 || fresh.Items()[0].URL != "img-1" {
		t.Fatalf("items = %v, want persisted img-1", fresh.Items())
	}
	if !fresh.IsFavorite("img-1") {
		t.Fatalf("favorite not restored")
	}
	folders := fresh.Folders()
	if len(folders) != 1 || !folders[0].Contains("img-1") {
		t.Fatalf("folders = %v, want restored membership", folders)
	}
}

func TestMergeRemoteKeepsInspirations(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	store.Add(ctx, domain.GalleryItem{URL: "mine-old", Type: domain.MediaTypeImage})
	store.Add(ctx, domain.GalleryItem{URL: "saved-1", Type: domain.MediaTypeImage, SavedFrom: "user-9"})

	store.MergeRemote(ctx, []domain.GalleryItem{
		{URL: "mine-new", Type: domain.MediaTypeImage},
	})

	items := store.Items()
	if len(items) != 2 {
		t.Fatalf("items = %v, want remote item plus kept inspiration", items)
	}
	var haveRemote, haveSaved bool
	for _, item := range items {
		if item.URL == "mine-new" {
			haveRemote = true
		}
		if item.URL == "saved-1" {
			haveSaved = true
		}
	}
	if !haveRemote || !haveSaved {
		t.Fatalf("items = %v, want mine-new and saved-1", items)
	}
}
