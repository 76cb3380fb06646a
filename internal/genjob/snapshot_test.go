package genjob

import (
	"errors"
	"testing"

	"daygen/internal/domain"
)

func snapWith(status domain.JobStatus, resultURL string, meta map[string]any) domain.JobSnapshot {
	return domain.JobSnapshot{
		Job: domain.Job{
			ID:        "job-1",
			Status:    status,
			ResultURL: resultURL,
			Metadata:  meta,
		},
	}
}

func TestInterpretNonTerminal(t *testing.T) {
	interp, err := Interpret(snapWith(domain.JobStatusProcessing, "", nil))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if interp.Done {
		t.Fatalf("done = true, want false")
	}
	if interp.Succeeded {
		t.Fatalf("succeeded = true, want false")
	}
}

func TestInterpretDeduplicatesResultURLs(t *testing.T) {
	meta := map[string]any{
		"results": []any{
			map[string]any{"url": "a"},
			map[string]any{"url": "a"},
			map[string]any{"url": "b"},
		},
	}
	interp, err := Interpret(snapWith(domain.JobStatusSucceeded, "", meta))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if len(interp.ResultURLs) != 2 {
		t.Fatalf("result urls = %v, want exactly [a b]", interp.ResultURLs)
	}
	got := map[string]bool{}
	for _, u := range interp.ResultURLs {
		got[u] = true
	}
	if !got["a"] || !got["b"] {
		t.Fatalf("result urls = %v, want set {a, b}", interp.ResultURLs)
	}
}

func TestInterpretExtractionOrder(t *testing.T) {
	cases := []struct {
		name  string
		snap  domain.JobSnapshot
		first string
	}{
		{
			name:  "direct result url wins",
			snap:  snapWith(domain.JobStatusSucceeded, "direct", map[string]any{"url": "meta"}),
			first: "direct",
		},
		{
			name:  "camel case metadata key",
			snap:  snapWith(domain.JobStatusSucceeded, "", map[string]any{"resultUrl": "camel", "url": "plain"}),
			first: "camel",
		},
		{
			name: "entries from images array",
			snap: snapWith(domain.JobStatusSucceeded, "", map[string]any{
				"images": []any{map[string]any{"imageUrl": "img-1"}},
			}),
			first: "img-1",
		},
		{
			name: "plain string entries",
			snap: snapWith(domain.JobStatusSucceeded, "", map[string]any{
				"results": []any{"plain-url"},
			}),
			first: "plain-url",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			interp, err := Interpret(tc.snap)
			if err != nil {
				t.Fatalf("interpret: %v", err)
			}
			if len(interp.ResultURLs) == 0 || interp.ResultURLs[0] != tc.first {
				t.Fatalf("result urls = %v, want first %q", interp.ResultURLs, tc.first)
			}
		})
	}
}

func TestInterpretSucceededWithoutURLs(t *testing.T) {
	_, err := Interpret(snapWith(domain.JobStatusSucceeded, "", nil))
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestInterpretFailedJobIsNotAnError(t *testing.T) {
	interp, err := Interpret(snapWith(domain.JobStatusFailed, "", nil))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if !interp.Done || interp.Succeeded {
		t.Fatalf("interp = %+v, want done and not succeeded", interp)
	}
}
