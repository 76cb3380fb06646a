package providers

import (
	"encoding/json"
	"time"

	"daygen/internal/domain"
	"daygen/internal/genjob"
)

// immediatePayload is the shape synchronous providers return inside the
// submit envelope.
type immediatePayload struct {
	DataURL  string   `json:"dataUrl,omitempty"`
	DataURLs []string `json:"dataUrls,omitempty"`
	URL      string   `json:"url,omitempty"`
	URLs     []string `json:"urls,omitempty"`
}

// payloadURLs extracts result URLs from a synchronous payload, de-duplicated
// in insertion order.
func payloadURLs(payload json.RawMessage) []string {
	if len(payload) == 0 {
		return nil
	}
	var decoded immediatePayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	add(decoded.DataURL)
	for _, u := range decoded.DataURLs {
		add(u)
	}
	add(decoded.URL)
	for _, u := range decoded.URLs {
		add(u)
	}
	return urls
}

// itemsFromURLs builds gallery items for the given result URLs.
func itemsFromURLs(opts Options, media domain.MediaType, urls []string) []domain.GalleryItem {
	items := make([]domain.GalleryItem, 0, len(urls))
	now := time.Now().UTC()
	for _, u := range urls {
		items = append(items, domain.GalleryItem{
			URL:        u,
			Type:       media,
			Prompt:     opts.Prompt,
			Model:      opts.Model,
			Timestamp:  now,
			OwnerID:    opts.OwnerID,
			AvatarID:   opts.AvatarID,
			References: opts.References,
		})
	}
	return items
}

// defaultBuildRequest wraps the generic options into the submit envelope
// unchanged. Providers with required defaults layer on top of it.
func defaultBuildRequest(opts Options) (*genjob.SubmitRequest, error) {
	return &genjob.SubmitRequest{
		Prompt:          opts.Prompt,
		Model:           opts.Model,
		ProviderOptions: opts.Extra,
		References:      opts.References,
	}, nil
}

// parseImmediateURLs is the shared immediate-result parser for providers that
// can resolve in the submit response.
func parseImmediateURLs(media domain.MediaType) func(Options, *genjob.SubmitResponse) ([]domain.GalleryItem, bool) {
	return func(opts Options, resp *genjob.SubmitResponse) ([]domain.GalleryItem, bool) {
		urls := payloadURLs(resp.Payload)
		if len(urls) == 0 {
			return nil, false
		}
		return itemsFromURLs(opts, media, urls), true
	}
}

// parseSnapshotResult is the shared terminal-snapshot parser for asynchronous
// providers: result URLs come from the snapshot via the common extraction
// rules.
func parseSnapshotResult(media domain.MediaType) func(Options, domain.JobSnapshot, *genjob.SubmitResponse) ([]domain.GalleryItem, error) {
	return func(opts Options, snap domain.JobSnapshot, resp *genjob.SubmitResponse) ([]domain.GalleryItem, error) {
		interp, err := genjob.Interpret(snap)
		if err != nil {
			return nil, err
		}
		return itemsFromURLs(opts, media, interp.ResultURLs), nil
	}
}

// syncEntry describes a provider that usually resolves in the submit call but
// may still hand back a job id under load.
func syncEntry(id string, media domain.MediaType) Entry {
	return Entry{
		ID:             id,
		Media:          media,
		Metered:        true,
		BuildRequest:   defaultBuildRequest,
		ParseImmediate: parseImmediateURLs(media),
		ParseJobResult: parseSnapshotResult(media),
	}
}

// asyncEntry describes a provider that always runs through the poll loop.
func asyncEntry(id string, media domain.MediaType) Entry {
	return Entry{
		ID:             id,
		Media:          media,
		Metered:        true,
		BuildRequest:   defaultBuildRequest,
		ParseJobResult: parseSnapshotResult(media),
	}
}
