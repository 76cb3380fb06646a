package providers

import (
	"daygen/internal/domain"
	"daygen/internal/genjob"
)

func builtinVideoEntries() []Entry {
	veo := asyncEntry("veo", domain.MediaTypeVideo)
	veo.BuildRequest = veoBuildRequest

	runway := asyncEntry("runway-video", domain.MediaTypeVideo)
	runway.BuildRequest = runwayVideoBuildRequest

	seedance := asyncEntry("seedance", domain.MediaTypeVideo)
	wan := asyncEntry("wan", domain.MediaTypeVideo)
	hailuo := asyncEntry("hailuo", domain.MediaTypeVideo)
	kling := asyncEntry("kling", domain.MediaTypeVideo)
	lumaVideo := asyncEntry("luma-video", domain.MediaTypeVideo)

	return []Entry{veo, runway, seedance, wan, hailuo, kling, lumaVideo}
}

// veoBuildRequest defaults the aspect ratio; the upstream rejects requests
// without one.
func veoBuildRequest(opts Options) (*genjob.SubmitRequest, error) {
	req, err := defaultBuildRequest(opts)
	if err != nil {
		return nil, err
	}
	if req.ProviderOptions == nil {
		req.ProviderOptions = map[string]any{}
	}
	if _, ok := req.ProviderOptions["aspectRatio"]; !ok {
		req.ProviderOptions["aspectRatio"] = "16:9"
	}
	return req, nil
}

// runwayVideoBuildRequest defaults clip duration to the product's standard
// five seconds.
func runwayVideoBuildRequest(opts Options) (*genjob.SubmitRequest, error) {
	req, err := defaultBuildRequest(opts)
	if err != nil {
		return nil, err
	}
	if req.ProviderOptions == nil {
		req.ProviderOptions = map[string]any{}
	}
	if _, ok := req.ProviderOptions["duration"]; !ok {
		req.ProviderOptions["duration"] = 5
	}
	return req, nil
}
