package genjob

import (
	"fmt"

	"daygen/internal/domain"
)

// Interpretation is the normalized reading of a job snapshot shared by every
// provider adapter.
type Interpretation struct {
	Done       bool
	Succeeded  bool
	ResultURLs []string
}

// metadata keys probed for a single result URL, in priority order.
var metadataURLKeys = []string{"resultUrl", "result_url", "url", "imageUrl", "image_url"}

// metadata keys probed for arrays of results.
var metadataListKeys = []string{"results", "images"}

// Interpret reduces a snapshot to its terminal/result essentials. Duplicate
// URLs collapse into a single entry. A succeeded terminal snapshot with no
// extractable URL is a contract violation and yields ErrEmptyResult.
func Interpret(snap domain.JobSnapshot) (Interpretation, error) {
	status := snap.Job.Status
	out := Interpretation{
		Done:      status.Terminal(),
		Succeeded: status == domain.JobStatusSucceeded,
	}
	out.ResultURLs = extractResultURLs(snap)
	if out.Done && out.Succeeded && len(out.ResultURLs) == 0 {
		return out, fmt.Errorf("interpret snapshot for job %s: %w", snap.Job.ID, domain.ErrEmptyResult)
	}
	return out, nil
}

func extractResultURLs(snap domain.JobSnapshot) []string {
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

	add(snap.Job.ResultURL)

	meta := snap.Job.Metadata
	if meta == nil {
		return urls
	}
	for _, key := range metadataURLKeys {
		if s, ok := meta[key].(string); ok {
			add(s)
		}
	}
	for _, key := range metadataListKeys {
		entries, ok := meta[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range entries {
			switch v := entry.(type) {
			case string:
				add(v)
			case map[string]any:
				for _, k := range []string{"url", "imageUrl", "resultUrl"} {
					if s, ok := v[k].(string); ok && s != "" {
						add(s)
						break
					}
				}
			}
		}
	}
	return urls
}

// failureMessage extracts the provider's failure message from a terminal
// snapshot, when present.
func failureMessage(snap domain.JobSnapshot) string {
	if snap.Job.Metadata == nil {
		return ""
	}
	for _, key := range []string{"error", "message", "failureReason", "failure_reason"} {
		if s, ok := snap.Job.Metadata[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
