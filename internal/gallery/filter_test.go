package gallery

import (
	"testing"

	"daygen/internal/domain"
)

func testItems() []domain.GalleryItem {
	return []domain.GalleryItem{
		{URL: "img-1", Type: domain.MediaTypeImage, Model: "gemini", AvatarID: "ava-1", IsPublic: true},
		{URL: "img-2", Type: domain.MediaTypeImage, Model: "flux"},
		{URL: "vid-1", Type: domain.MediaTypeVideo, Model: "kling", SavedFrom: "user-9"},
	}
}

func urls(items []domain.GalleryItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.URL
	}
	return out
}

func TestFilterNoConstraintsReturnsEverything(t *testing.T) {
	got := filterItems(testItems(), nil, nil, Filters{Folder: "all", Avatar: "all"})
	if len(got) != 3 {
		t.Fatalf("items = %v, want all 3", urls(got))
	}
}

func TestFilterFacets(t *testing.T) {
	favorites := map[string]struct{}{"img-2": {}}
	folder := &domain.Folder{ID: "f1", Name: "Cats", ImageIDs: []string{"img-1"}}

	cases := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"liked", Filters{Liked: true}, []string{"img-2"}},
		{"public", Filters{Public: true}, []string{"img-1"}},
		{"models", Filters{Models: []string{"flux", "kling"}}, []string{"img-2", "vid-1"}},
		{"folder", Filters{Folder: "f1"}, []string{"img-1"}},
		{"origin mine", Filters{Origins: []string{OriginMine}}, []string{"img-1", "img-2"}},
		{"origin saved", Filters{Origins: []string{OriginSaved}}, []string{"vid-1"}},
		{"avatar", Filters{Avatar: "ava-1"}, []string{"img-1"}},
		{"types", Filters{Types: []domain.MediaType{domain.MediaTypeVideo}}, []string{"vid-1"}},
		{"composed AND", Filters{Public: true, Models: []string{"gemini"}, Avatar: "ava-1"}, []string{"img-1"}},
		{"composed AND empty", Filters{Liked: true, Models: []string{"gemini"}}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := urls(filterItems(testItems(), favorites, folder, tc.filters))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestFilterUnknownFolderMatchesNothing(t *testing.T) {
	got := filterItems(testItems(), nil, nil, Filters{Folder: "missing"})
	if len(got) != 0 {
		t.Fatalf("items = %v, want none for unknown folder", urls(got))
	}
}
